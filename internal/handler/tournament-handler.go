package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/models"
	"github.com/burakmert236/courtside/internal/service"
)

const TournamentServiceName = "courtside.v1.TournamentService"

type TournamentServer interface {
	CreateTournament(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetTournament(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func tournamentMethod(name string, pick func(TournamentServer) structMethod) grpc.MethodDesc {
	return unaryMethod(TournamentServiceName, name, func(srv interface{}) structMethod {
		return pick(srv.(TournamentServer))
	})
}

var tournamentServiceDesc = grpc.ServiceDesc{
	ServiceName: TournamentServiceName,
	HandlerType: (*TournamentServer)(nil),
	Methods: []grpc.MethodDesc{
		tournamentMethod("CreateTournament", func(s TournamentServer) structMethod { return s.CreateTournament }),
		tournamentMethod("GetTournament", func(s TournamentServer) structMethod { return s.GetTournament }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "",
}

func RegisterTournamentServer(s grpc.ServiceRegistrar, srv TournamentServer) {
	s.RegisterService(&tournamentServiceDesc, srv)
}

type TournamentHandler struct {
	tournamentService service.TournamentService
	logger            *logger.Logger
}

func NewTournamentHandler(tournamentService service.TournamentService, logger *logger.Logger) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		logger:            logger.With("component", "tournament-handler"),
	}
}

// CreateTournament makes the caller an admin when no admin list is given.
func (h *TournamentHandler) CreateTournament(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userId, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	name, err := requireString(req, "name")
	if err != nil {
		return nil, err
	}
	players, err := requireInt(req, "numberOfPlayers")
	if err != nil {
		return nil, err
	}
	startDate, err := timeArg(req, "startDate")
	if err != nil {
		return nil, err
	}
	endDate, err := timeArg(req, "endDate")
	if err != nil {
		return nil, err
	}

	adminIds := stringListArg(req, "adminIds")
	if len(adminIds) == 0 {
		adminIds = []string{userId}
	}

	tournament, svcErr := h.tournamentService.CreateTournament(ctx, service.CreateTournamentInput{
		Name:            name,
		NumberOfPlayers: players,
		Categories:      stringListArg(req, "categories"),
		AdminIds:        adminIds,
		StartDate:       startDate,
		EndDate:         endDate,
	})
	if svcErr != nil {
		return nil, apperrors.ToGRPCStatus(svcErr)
	}

	return toStruct(tournamentFields(tournament))
}

func (h *TournamentHandler) GetTournament(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tournamentId, err := requireString(req, "tournamentId")
	if err != nil {
		return nil, err
	}

	tournament, svcErr := h.tournamentService.GetTournament(ctx, tournamentId)
	if svcErr != nil {
		return nil, apperrors.ToGRPCStatus(svcErr)
	}

	return toStruct(tournamentFields(tournament))
}

func tournamentFields(t *models.Tournament) map[string]interface{} {
	return map[string]interface{}{
		"tournamentId":    t.TournamentId,
		"name":            t.Name,
		"numberOfPlayers": t.NumberOfPlayers,
		"categories":      stringList(t.Categories),
		"adminIds":        stringList(t.AdminIds),
		"startDate":       formatTime(t.StartDate),
		"endDate":         formatTime(t.EndDate),
	}
}
