package handler

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/pantry-sync/internal/core/domain"
	"github.com/rl1809/pantry-sync/internal/core/service"
	"github.com/rl1809/pantry-sync/internal/port"
)

const authorizationKey = "authorization"

type GRPCHandler struct {
	synchronizer *service.Synchronizer
	identity     port.IdentityProvider
}

var _ InventoryServer = (*GRPCHandler)(nil)

func NewGRPCHandler(synchronizer *service.Synchronizer, identity port.IdentityProvider) *GRPCHandler {
	return &GRPCHandler{synchronizer: synchronizer, identity: identity}
}

func (h *GRPCHandler) Refresh(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	session, err := h.authenticate(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	snap, err := h.synchronizer.Refresh(ctx, session)
	if err != nil {
		return nil, grpcError(err)
	}
	return snapshotStruct(snap)
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session, err := h.authenticate(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	snap, err := h.synchronizer.AddItem(ctx, session, stringField(req, "name"))
	if err != nil {
		return nil, grpcError(err)
	}
	return snapshotStruct(snap)
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session, err := h.authenticate(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	amount, err := intField(req, "amount")
	if err != nil {
		return nil, grpcError(err)
	}

	snap, err := h.synchronizer.RemoveItem(ctx, session, stringField(req, "name"), amount)
	if err != nil {
		return nil, grpcError(err)
	}
	return snapshotStruct(snap)
}

func (h *GRPCHandler) DeleteAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	session, err := h.authenticate(ctx)
	if err != nil {
		return nil, grpcError(err)
	}

	if err := h.synchronizer.DeleteAccount(ctx, session); err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"success": true, "message": "account deleted"})
}

func (h *GRPCHandler) authenticate(ctx context.Context) (domain.Session, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(authorizationKey)
	if len(values) == 0 {
		return domain.Session{}, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}

	token, err := bearerToken(values[0])
	if err != nil {
		return domain.Session{}, err
	}
	return h.identity.Authenticate(ctx, token)
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

func intField(req *structpb.Struct, key string) (int, error) {
	if req == nil {
		return 0, nil
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, key)
	}
	return int(n.NumberValue), nil
}

func snapshotStruct(snap domain.Snapshot) (*structpb.Struct, error) {
	items := make([]any, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, map[string]any{
			"name":       item.Name,
			"quantity":   item.Quantity,
			"updated_at": item.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	return structpb.NewStruct(map[string]any{
		"user_id":     snap.UserID,
		"items":       items,
		"total_units": snap.TotalUnits(),
	})
}
