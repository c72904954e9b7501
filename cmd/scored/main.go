package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/config"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/rpc"
)

// #region main
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	store, err := bank.NewStore(cfg.DB)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	reg, err := store.Load()
	if errors.Is(err, bank.ErrEmpty) {
		logger.Info("[RPC] no bank imported, loading file", "path", cfg.Bank)
		reg = registry.LoadOrEmpty(cfg.Bank, logger)
		if _, err = store.Import(reg, cfg.Bank); err != nil {
			log.Fatalf("import bank: %v", err)
		}
	} else if err != nil {
		log.Fatalf("load bank: %v", err)
	}
	info, err := store.Info()
	if err != nil {
		log.Fatalf("bank info: %v", err)
	}

	opts := []rpc.Option{rpc.WithJournal(store, info.BankID), rpc.WithLogger(logger)}
	if cfg.Seed != 0 {
		seed := cfg.Seed
		opts = append(opts, rpc.WithSeedSource(func() uint64 { return seed }))
	}
	srv := rpc.NewServer(reg, cfg.Scoring(), opts...)

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("listen %s: %v", cfg.Addr, err)
	}
	gs := grpc.NewServer()
	rpc.RegisterAssessmentServer(gs, srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("[RPC] shutting down")
		gs.GracefulStop()
	}()

	logger.Info("[RPC] serving", "addr", lis.Addr().String(), "bank", info.BankID, "traits", len(reg.Traits), "questions", len(reg.Questions))
	if err := gs.Serve(lis); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
// #endregion main
