package handler

import (
	"context"
	"sort"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/service"
	"github.com/burakmert236/courtside/internal/unread"
)

const NotificationServiceName = "courtside.v1.NotificationService"

type NotificationServer interface {
	OpenSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetUnread(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkGroupRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkAnnouncementsRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetBadgeAuthorization(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func notificationMethod(name string, pick func(NotificationServer) structMethod) grpc.MethodDesc {
	return unaryMethod(NotificationServiceName, name, func(srv interface{}) structMethod {
		return pick(srv.(NotificationServer))
	})
}

var notificationServiceDesc = grpc.ServiceDesc{
	ServiceName: NotificationServiceName,
	HandlerType: (*NotificationServer)(nil),
	Methods: []grpc.MethodDesc{
		notificationMethod("OpenSession", func(s NotificationServer) structMethod { return s.OpenSession }),
		notificationMethod("CloseSession", func(s NotificationServer) structMethod { return s.CloseSession }),
		notificationMethod("GetUnread", func(s NotificationServer) structMethod { return s.GetUnread }),
		notificationMethod("MarkGroupRead", func(s NotificationServer) structMethod { return s.MarkGroupRead }),
		notificationMethod("MarkAnnouncementsRead", func(s NotificationServer) structMethod { return s.MarkAnnouncementsRead }),
		notificationMethod("SetBadgeAuthorization", func(s NotificationServer) structMethod { return s.SetBadgeAuthorization }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "",
}

func RegisterNotificationServer(s grpc.ServiceRegistrar, srv NotificationServer) {
	s.RegisterService(&notificationServiceDesc, srv)
}

type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *logger.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger.With("component", "notification-handler"),
	}
}

func (h *NotificationHandler) OpenSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.notificationService.OpenSession(ctx, userId); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}

	return toStruct(map[string]interface{}{"userId": userId, "open": true})
}

func (h *NotificationHandler) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	closed := h.notificationService.CloseSession(ctx, userId)
	return toStruct(map[string]interface{}{"userId": userId, "closed": closed})
}

func (h *NotificationHandler) GetUnread(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	totals, svcErr := h.notificationService.GetUnread(ctx, userId)
	if svcErr != nil {
		h.logger.Warn("Unread aggregation failed", "user_id", userId, "error", svcErr)
		return nil, apperrors.ToGRPCStatus(svcErr)
	}

	return toStruct(totalsFields(totals))
}

func (h *NotificationHandler) MarkGroupRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	groupId, err := requireString(req, "groupId")
	if err != nil {
		return nil, err
	}

	if err := h.notificationService.MarkGroupRead(ctx, groupId, userId); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}

	return toStruct(map[string]interface{}{"groupId": groupId})
}

func (h *NotificationHandler) MarkAnnouncementsRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.notificationService.MarkAnnouncementsRead(ctx, userId); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}

	return toStruct(map[string]interface{}{"userId": userId})
}

func (h *NotificationHandler) SetBadgeAuthorization(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	authorized := boolArg(req, "authorized")

	if err := h.notificationService.SetBadgeAuthorization(ctx, userId, authorized); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}

	return toStruct(map[string]interface{}{"userId": userId, "authorized": authorized})
}

func totalsFields(t unread.Totals) map[string]interface{} {
	perGroup := make(map[string]interface{}, len(t.PerGroup))
	for groupId, count := range t.PerGroup {
		perGroup[groupId] = count
	}

	failed := append([]string(nil), t.Failed...)
	sort.Strings(failed)

	return map[string]interface{}{
		"userId":        t.UserId,
		"total":         t.Total,
		"perGroup":      perGroup,
		"announcements": t.Announcements,
		"failed":        stringList(failed),
		"computedAt":    formatTime(t.ComputedAt),
	}
}
