package main

import (
	"context"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	grpcexecutor "github.com/DuHerb/code-squad/cmd/code-squad/grpc_executor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

func runRemote(ctx context.Context, addr, token string, req *model.Request) (*model.Response, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	return grpcexecutor.NewExecutorClient(conn).Execute(ctx, req)
}
