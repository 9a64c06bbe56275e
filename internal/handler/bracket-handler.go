package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/bracket"
	"github.com/burakmert236/courtside/internal/service"
)

const BracketServiceName = "courtside.v1.BracketService"

type BracketServer interface {
	GetBracket(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Advance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeclareChampion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GoBack(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EditSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EditScore(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EditChampion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SaveRound(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func bracketMethod(name string, pick func(BracketServer) structMethod) grpc.MethodDesc {
	return unaryMethod(BracketServiceName, name, func(srv interface{}) structMethod {
		return pick(srv.(BracketServer))
	})
}

var bracketServiceDesc = grpc.ServiceDesc{
	ServiceName: BracketServiceName,
	HandlerType: (*BracketServer)(nil),
	Methods: []grpc.MethodDesc{
		bracketMethod("GetBracket", func(s BracketServer) structMethod { return s.GetBracket }),
		bracketMethod("Advance", func(s BracketServer) structMethod { return s.Advance }),
		bracketMethod("DeclareChampion", func(s BracketServer) structMethod { return s.DeclareChampion }),
		bracketMethod("GoBack", func(s BracketServer) structMethod { return s.GoBack }),
		bracketMethod("EditSlot", func(s BracketServer) structMethod { return s.EditSlot }),
		bracketMethod("EditScore", func(s BracketServer) structMethod { return s.EditScore }),
		bracketMethod("EditChampion", func(s BracketServer) structMethod { return s.EditChampion }),
		bracketMethod("SaveRound", func(s BracketServer) structMethod { return s.SaveRound }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "",
}

func RegisterBracketServer(s grpc.ServiceRegistrar, srv BracketServer) {
	s.RegisterService(&bracketServiceDesc, srv)
}

type BracketHandler struct {
	bracketService service.BracketService
	logger         *logger.Logger
}

func NewBracketHandler(bracketService service.BracketService, logger *logger.Logger) *BracketHandler {
	return &BracketHandler{
		bracketService: bracketService,
		logger:         logger.With("component", "bracket-handler"),
	}
}

type drawRef struct {
	tournamentId string
	categoryId   string
}

func readDraw(req *structpb.Struct) (drawRef, error) {
	tournamentId, err := requireString(req, "tournamentId")
	if err != nil {
		return drawRef{}, err
	}
	categoryId, err := requireString(req, "categoryId")
	if err != nil {
		return drawRef{}, err
	}
	return drawRef{tournamentId: tournamentId, categoryId: categoryId}, nil
}

func (h *BracketHandler) GetBracket(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	draw, err := readDraw(req)
	if err != nil {
		return nil, err
	}

	snapshot, svcErr := h.bracketService.GetBracket(ctx, draw.tournamentId, draw.categoryId)
	return h.respond(snapshot, svcErr)
}

func (h *BracketHandler) Advance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.Advance(ctx, actor, draw.tournamentId, draw.categoryId)
	})
}

func (h *BracketHandler) DeclareChampion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.DeclareChampion(ctx, actor, draw.tournamentId, draw.categoryId)
	})
}

func (h *BracketHandler) GoBack(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.GoBack(ctx, actor, draw.tournamentId, draw.categoryId)
	})
}

func (h *BracketHandler) EditSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roundIndex, slotIndex, err := readSlot(req)
	if err != nil {
		return nil, err
	}
	name := rawStringArg(req, "name")

	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.EditSlot(ctx, actor, draw.tournamentId, draw.categoryId, roundIndex, slotIndex, name)
	})
}

func (h *BracketHandler) EditScore(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roundIndex, slotIndex, err := readSlot(req)
	if err != nil {
		return nil, err
	}
	score := rawStringArg(req, "score")

	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.EditScore(ctx, actor, draw.tournamentId, draw.categoryId, roundIndex, slotIndex, score)
	})
}

func (h *BracketHandler) EditChampion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := rawStringArg(req, "name")
	score := rawStringArg(req, "score")

	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.EditChampion(ctx, actor, draw.tournamentId, draw.categoryId, name, score)
	})
}

func (h *BracketHandler) SaveRound(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.mutate(ctx, req, func(actor string, draw drawRef) (bracket.Snapshot, error) {
		return h.bracketService.SaveRound(ctx, actor, draw.tournamentId, draw.categoryId)
	})
}

func readSlot(req *structpb.Struct) (int, int, error) {
	roundIndex, err := requireInt(req, "roundIndex")
	if err != nil {
		return 0, 0, err
	}
	slotIndex, err := requireInt(req, "slotIndex")
	if err != nil {
		return 0, 0, err
	}
	return roundIndex, slotIndex, nil
}

func (h *BracketHandler) mutate(
	ctx context.Context,
	req *structpb.Struct,
	op func(actor string, draw drawRef) (bracket.Snapshot, error),
) (*structpb.Struct, error) {
	actor, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	draw, err := readDraw(req)
	if err != nil {
		return nil, err
	}

	snapshot, svcErr := op(actor, draw)
	return h.respond(snapshot, svcErr)
}

func (h *BracketHandler) respond(snapshot bracket.Snapshot, err error) (*structpb.Struct, error) {
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeFailedPrecondition) {
			h.logger.Warn("Bracket request failed", "error", err)
		}
		return nil, apperrors.ToGRPCStatus(err)
	}
	return toStruct(snapshotFields(snapshot))
}

func snapshotFields(s bracket.Snapshot) map[string]interface{} {
	rounds := make([]interface{}, 0, len(s.Rounds))
	for _, r := range s.Rounds {
		rounds = append(rounds, map[string]interface{}{
			"index":       r.Index,
			"version":     r.Version,
			"title":       r.Title(),
			"playerNames": stringList(r.PlayerNames),
			"scores":      stringList(r.Scores),
		})
	}

	return map[string]interface{}{
		"tournamentId": s.TournamentId,
		"categoryId":   s.CategoryId,
		"state":        s.State.String(),
		"currentRound": s.CurrentRound,
		"title":        s.Title,
		"rounds":       rounds,
		"champion": map[string]interface{}{
			"name":  s.Champion.Name,
			"score": s.Champion.Score,
		},
		"canAdvance":         s.CanAdvance,
		"canDeclareChampion": s.CanDeclareChampion,
		"canGoBack":          s.CanGoBack,
	}
}
