package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/service"
)

const ChatServiceName = "courtside.v1.ChatService"

type ChatServer interface {
	CreateGroup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostAnnouncement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func chatMethod(name string, pick func(ChatServer) structMethod) grpc.MethodDesc {
	return unaryMethod(ChatServiceName, name, func(srv interface{}) structMethod {
		return pick(srv.(ChatServer))
	})
}

var chatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		chatMethod("CreateGroup", func(s ChatServer) structMethod { return s.CreateGroup }),
		chatMethod("AddMember", func(s ChatServer) structMethod { return s.AddMember }),
		chatMethod("RemoveMember", func(s ChatServer) structMethod { return s.RemoveMember }),
		chatMethod("PostMessage", func(s ChatServer) structMethod { return s.PostMessage }),
		chatMethod("PostAnnouncement", func(s ChatServer) structMethod { return s.PostAnnouncement }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "",
}

func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&chatServiceDesc, srv)
}

type ChatHandler struct {
	chatService service.ChatService
	logger      *logger.Logger
}

func NewChatHandler(chatService service.ChatService, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger.With("component", "chat-handler"),
	}
}

// CreateGroup always includes the caller among the members.
func (h *ChatHandler) CreateGroup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}

	memberIds := append([]string{userId}, stringListArg(req, "memberIds")...)

	group, svcErr := h.chatService.CreateGroup(ctx, name, memberIds)
	if svcErr != nil {
		return nil, apperrors.ToGRPCStatus(svcErr)
	}

	return toStruct(map[string]interface{}{
		"groupId":   group.GroupId,
		"name":      group.Name,
		"memberIds": stringList(group.MemberIds),
		"createdAt": formatTime(group.CreatedAt),
	})
}

func (h *ChatHandler) AddMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.changeMembership(ctx, req, h.chatService.AddMember)
}

func (h *ChatHandler) RemoveMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.changeMembership(ctx, req, h.chatService.RemoveMember)
}

func (h *ChatHandler) changeMembership(
	ctx context.Context,
	req *structpb.Struct,
	op func(ctx context.Context, groupId string, userId string) error,
) (*structpb.Struct, error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	groupId, err := requireString(req, "groupId")
	if err != nil {
		return nil, err
	}
	memberId, err := requireString(req, "userId")
	if err != nil {
		return nil, err
	}

	if err := op(ctx, groupId, memberId); err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}

	return toStruct(map[string]interface{}{"groupId": groupId, "userId": memberId})
}

func (h *ChatHandler) PostMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	groupId, err := requireString(req, "groupId")
	if err != nil {
		return nil, err
	}
	text, err := requireString(req, "text")
	if err != nil {
		return nil, err
	}

	message, svcErr := h.chatService.PostMessage(ctx, groupId, userId, text)
	if svcErr != nil {
		return nil, apperrors.ToGRPCStatus(svcErr)
	}

	return toStruct(map[string]interface{}{
		"messageId": message.MessageId,
		"groupId":   message.GroupId,
		"senderId":  message.SenderId,
		"createdAt": formatTime(message.CreatedAt),
	})
}

func (h *ChatHandler) PostAnnouncement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}
	senderUsername, err := requireString(req, "senderUsername")
	if err != nil {
		return nil, err
	}
	content, err := requireString(req, "content")
	if err != nil {
		return nil, err
	}

	announcement, svcErr := h.chatService.PostAnnouncement(ctx, senderUsername, content)
	if svcErr != nil {
		return nil, apperrors.ToGRPCStatus(svcErr)
	}

	return toStruct(map[string]interface{}{
		"announcementId": announcement.AnnouncementId,
		"senderUsername": announcement.SenderUsername,
		"createdAt":      formatTime(announcement.CreatedAt),
	})
}
