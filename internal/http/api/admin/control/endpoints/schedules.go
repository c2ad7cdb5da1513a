package endpoints

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
	"github.com/Nixie-Tech-LLC/adcast/internal/schedule"
)

type ScheduleService interface {
	ExpandAndPersist(ctx context.Context, req model.ScheduleRequest) ([]model.ScheduleEntry, error)
	DeleteSchedules(ctx context.Context, filter model.ScheduleFilter) (int, []model.GroupDate, error)
}

type ScheduleController struct {
	service ScheduleService
}

func NewScheduleController(service ScheduleService) *ScheduleController {
	return &ScheduleController{service: service}
}

func ScheduleModule(service ScheduleService) api.Module {
	ctl := NewScheduleController(service)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/schedules", ctl.createSchedules)
		c.DELETE("/schedules", ctl.deleteSchedules)
		c.DELETE("/schedules/:id", ctl.deleteSchedule)
	})
}

func (s *ScheduleController) createSchedules(ctx *gin.Context) (any, *api.APIError) {
	var request packets.CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	req, err := request.ToModel()
	if err != nil {
		return nil, api.BadRequest(err.Error())
	}

	entries, err := s.service.ExpandAndPersist(ctx.Request.Context(), req)
	if err != nil {
		return nil, scheduleError(err, "could not create schedules")
	}

	response := packets.CreateSchedulesResponse{
		Created: len(entries),
		Entries: make([]packets.ScheduleEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		response.Entries = append(response.Entries, packets.NewScheduleEntryResponse(e))
	}
	return response, nil
}

func (s *ScheduleController) deleteSchedules(ctx *gin.Context) (any, *api.APIError) {
	var request packets.DeleteSchedulesRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	filter, err := request.ToFilter()
	if err != nil {
		return nil, api.BadRequest(err.Error())
	}
	return s.delete(ctx, filter)
}

func (s *ScheduleController) deleteSchedule(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	deleted, apiErr := s.delete(ctx, model.ScheduleFilter{ScheduleIDs: []string{id}})
	if apiErr != nil {
		return nil, apiErr
	}
	if deleted.Deleted == 0 {
		return nil, api.NotFound("schedule not found")
	}
	return deleted, nil
}

func (s *ScheduleController) delete(ctx *gin.Context, filter model.ScheduleFilter) (packets.DeleteSchedulesResponse, *api.APIError) {
	n, pairs, err := s.service.DeleteSchedules(ctx.Request.Context(), filter)
	if err != nil {
		return packets.DeleteSchedulesResponse{}, scheduleError(err, "could not delete schedules")
	}

	response := packets.DeleteSchedulesResponse{
		Deleted:  n,
		Affected: make([]packets.GroupDateResponse, 0, len(pairs)),
	}
	for _, p := range pairs {
		response.Affected = append(response.Affected, packets.GroupDateResponse{
			Date:    p.Date.Format(time.DateOnly),
			GroupID: p.GroupID,
		})
	}
	return response, nil
}

func scheduleError(err error, fallback string) *api.APIError {
	switch {
	case errors.Is(err, schedule.ErrContentNotFound):
		return api.NotFound(err.Error())
	case schedule.IsClientError(err):
		return api.BadRequest(err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		return api.Internal(fallback)
	}
}
