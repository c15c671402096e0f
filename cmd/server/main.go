package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/codex-hr-compliance/internal/adapters/grpc/handler"
	"github.com/ogurasousui/codex-hr-compliance/internal/adapters/httpapi"
	"github.com/ogurasousui/codex-hr-compliance/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/accident"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/contract"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/employee"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/loan"
	"github.com/ogurasousui/codex-hr-compliance/internal/core/payroll"
	"github.com/ogurasousui/codex-hr-compliance/internal/platform/config"
	pg "github.com/ogurasousui/codex-hr-compliance/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-hr-compliance/internal/platform/logging"
	"github.com/ogurasousui/codex-hr-compliance/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database pool: %v", err)
	}
	defer dbPool.Close()

	isoLevel, err := pg.ParseIsolation(cfg.Database.TxIsolation)
	if err != nil {
		log.Fatalf("failed to configure transactions: %v", err)
	}
	txManager := pg.NewTransactionManager(dbPool, pg.WithIsolation(isoLevel))

	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	contractRepo := postgres.NewContractRepository(dbPool)
	settlementRepo := postgres.NewSettlementRepository(dbPool)
	accidentRepo := postgres.NewAccidentRepository(dbPool)
	loanRepo := postgres.NewLoanRepository(dbPool)

	employeeSvc := employee.NewService(employeeRepo, nil, txManager, logger)
	contractSvc := contract.NewService(contract.Dependencies{
		Contracts:   contractRepo,
		Settlements: settlementRepo,
		Employees:   employeeSvc,
		Tx:          txManager,
		Logger:      logger,
	})
	payrollSvc := payroll.NewService(payroll.Dependencies{
		Contracts:        contractRepo,
		Tx:               txManager,
		Logger:           logger,
		BatchConcurrency: cfg.Payroll.BatchConcurrency,
	})
	accidentSvc := accident.NewService(accidentRepo, nil, txManager, logger)
	loanSvc := loan.NewService(loanRepo, contractRepo, nil, txManager, logger)

	complianceHandler := handler.NewComplianceHandler(handler.Services{
		Employees: employeeSvc,
		Contracts: contractSvc,
		Payroll:   payrollSvc,
		Accidents: accidentSvc,
		Loans:     loanSvc,
	})
	grpcServer := server.New(cfg.Server.ListenAddr, complianceHandler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "gRPC server listening", slog.String("addr", cfg.Server.ListenAddr))
		return grpcServer.Run(gctx)
	})
	if cfg.Ops.ListenAddr != "" {
		opsServer := httpapi.NewServer(cfg.Ops.ListenAddr, httpapi.NewRouter(dbPool, logger))
		g.Go(func() error {
			logger.InfoContext(gctx, "ops http server listening", slog.String("addr", cfg.Ops.ListenAddr))
			return opsServer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}
