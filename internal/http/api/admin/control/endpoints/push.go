package endpoints

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/db"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
	"github.com/Nixie-Tech-LLC/adcast/internal/push"
)

type Pusher interface {
	PushToGroups(ctx context.Context, groupIDs []string, placeholder *string) error
	PushAll(ctx context.Context, placeholder *string) error
	NotifyDeviceExit(ctx context.Context, deviceID string) error
}

type DeviceFinder interface {
	GetDevice(ctx context.Context, deviceID string) (*model.Device, error)
}

type PushController struct {
	pusher  Pusher
	devices DeviceFinder
}

func NewPushController(pusher Pusher, devices DeviceFinder) *PushController {
	return &PushController{pusher: pusher, devices: devices}
}

func PushModule(pusher Pusher, devices DeviceFinder) api.Module {
	ctl := NewPushController(pusher, devices)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/push", ctl.push)
		c.POST("/devices/:device_id/exit", ctl.exitDevice)
	})
}

// push re-publishes the given groups, or every group when none are listed. Partial failure
// is reported in the body rather than as an error status.
func (p *PushController) push(ctx *gin.Context) (any, *api.APIError) {
	var request packets.PushRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&request); err != nil {
			return nil, api.BadRequest(err.Error())
		}
	}

	var err error
	if len(request.GroupIDs) == 0 {
		err = p.pusher.PushAll(ctx.Request.Context(), request.Placeholder)
	} else {
		err = p.pusher.PushToGroups(ctx.Request.Context(), request.GroupIDs, request.Placeholder)
	}

	var groupErrs *push.GroupErrors
	switch {
	case err == nil:
		return packets.PushResponse{Pushed: true}, nil
	case errors.As(err, &groupErrs):
		return packets.PushResponse{Pushed: false, FailedGroups: groupErrs.GroupIDs()}, nil
	default:
		log.Error().Err(err).Msg("push failed")
		return nil, api.Internal("could not push playlists")
	}
}

func (p *PushController) exitDevice(ctx *gin.Context) (any, *api.APIError) {
	deviceID := ctx.Param("device_id")

	if _, err := p.devices.GetDevice(ctx.Request.Context(), deviceID); err != nil {
		if errors.Is(err, db.ErrDeviceNotFound) {
			return nil, api.NotFound("device not found")
		}
		return nil, api.Internal("could not load device")
	}

	if err := p.pusher.NotifyDeviceExit(ctx.Request.Context(), deviceID); err != nil {
		return nil, &api.APIError{Code: http.StatusBadGateway, Message: "exit notification not delivered"}
	}
	return packets.StatusResponse{Status: "sent"}, nil
}
