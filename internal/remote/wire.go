package remote

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/memojournal/internal/models"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "memojournal.v1.MemoryStore"

const (
	methodList   = "List"
	methodCreate = "Create"
	methodUpdate = "Update"
	methodDelete = "Delete"
	methodPing   = "Ping"
)

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// PingMethod is the full gRPC method name of the reachability probe.
var PingMethod = fullMethod(methodPing)

type listRequest struct {
	UserID string `json:"userId"`
}

type listResponse struct {
	Records []models.Record `json:"records"`
}

type createRequest struct {
	UserID  string               `json:"userId"`
	Payload models.CreatePayload `json:"payload"`
}

type createResponse struct {
	Record models.Record `json:"record"`
}

type updateRequest struct {
	ID    string       `json:"id"`
	Patch models.Patch `json:"patch"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

type pingResponse struct {
	Status string `json:"status"`
}

type empty struct{}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return st, nil
}

func fromStruct(st *structpb.Struct, v any) error {
	b, err := protojson.Marshal(st)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
