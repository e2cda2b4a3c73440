package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/pantry-sync/internal/adapter/handler"
	"github.com/rl1809/pantry-sync/internal/app"
	"github.com/rl1809/pantry-sync/internal/config"
)

const (
	itemName      = "stress-test-item"
	totalRequests = 50
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Log.Level = "warn"

	infra, err := app.NewInfrastructure(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize infrastructure: %v", err)
	}
	defer infra.Shutdown(ctx)

	// Serve gRPC on an ephemeral port
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(infra.Synchronizer(), infra.Identity()))
	go grpcServer.Serve(lis)
	defer grpcServer.Stop()

	session, err := infra.Identity().Register(ctx, "stress-"+uuid.NewString()+"@example.com", "stress-password")
	if err != nil {
		log.Fatalf("failed to register: %v", err)
	}

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	client := handler.NewInventoryClient(conn)
	authCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+session.Token)
	req, _ := structpb.NewStruct(map[string]any{"name": itemName})

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := client.AddItem(authCtx, req); err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	snap, err := client.Refresh(authCtx, nil)
	if err != nil {
		log.Fatalf("failed to refresh: %v", err)
	}
	quantity := 0
	for _, v := range snap.GetFields()["items"].GetListValue().GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields["name"].GetStringValue() == itemName {
			quantity = int(fields["quantity"].GetNumberValue())
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store backend:     %s\n", cfg.Store.Backend)
	fmt.Printf("Total requests:    %d\n", totalRequests)
	fmt.Printf("Successful adds:   %d\n", successCount.Load())
	fmt.Printf("Failed adds:       %d\n", failCount.Load())
	fmt.Printf("Final quantity:    %d\n", quantity)
	fmt.Printf("Elapsed time:      %v\n", elapsed)
	fmt.Println("=========================================")

	if int32(quantity) == successCount.Load() {
		fmt.Println("PASS: no lost updates")
	} else {
		fmt.Println("FAIL: lost updates detected")
	}

	if _, err := client.DeleteAccount(authCtx, nil); err != nil {
		log.Printf("failed to delete stress account: %v", err)
	}
}
