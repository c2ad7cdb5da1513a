package endpoints

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

type Recomputer interface {
	Recompute(ctx context.Context, date time.Time, groupID *string) error
}

type ImpressionReader interface {
	ListImpressions(ctx context.Context, date time.Time, groupID *string) ([]model.ImpressionSummary, error)
}

type ImpressionController struct {
	recomputer Recomputer
	reader     ImpressionReader
}

func ImpressionModule(recomputer Recomputer, reader ImpressionReader) api.Module {
	ctl := &ImpressionController{recomputer: recomputer, reader: reader}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/impressions", ctl.listImpressions)
		c.POST("/impressions/recompute", ctl.recompute)
	})
}

func (i *ImpressionController) recompute(ctx *gin.Context) (any, *api.APIError) {
	var request packets.RecomputeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	date, err := packets.ParseDate(request.Date)
	if err != nil {
		return nil, api.BadRequest(err.Error())
	}
	groupID := request.GroupID
	if groupID != nil && *groupID == "" {
		groupID = nil
	}

	if err := i.recomputer.Recompute(ctx.Request.Context(), date, groupID); err != nil {
		log.Error().Err(err).Time("date", date).Msg("manual impression recompute failed")
		return nil, api.Internal("could not recompute impressions")
	}
	return i.list(ctx, date, groupID)
}

func (i *ImpressionController) listImpressions(ctx *gin.Context) (any, *api.APIError) {
	raw := ctx.Query("date")
	if raw == "" {
		return nil, api.BadRequest("date is required")
	}
	date, err := packets.ParseDate(raw)
	if err != nil {
		return nil, api.BadRequest(err.Error())
	}

	var groupID *string
	if g := ctx.Query("group_id"); g != "" {
		groupID = &g
	}
	return i.list(ctx, date, groupID)
}

func (i *ImpressionController) list(ctx *gin.Context, date time.Time, groupID *string) (any, *api.APIError) {
	rows, err := i.reader.ListImpressions(ctx.Request.Context(), date, groupID)
	if err != nil {
		return nil, api.Internal("could not list impressions")
	}
	response := make([]packets.ImpressionResponse, 0, len(rows))
	for _, r := range rows {
		response = append(response, packets.NewImpressionResponse(r))
	}
	return response, nil
}
