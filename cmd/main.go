package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	_ "dukapos/docs"
	"dukapos/internal/caching"
	"dukapos/internal/checkout"
	"dukapos/internal/common"
	"dukapos/internal/config"
	"dukapos/internal/handlers"
	"dukapos/internal/jobs"
	"dukapos/internal/jobs/background"
	"dukapos/internal/middleware"
	"dukapos/internal/payments"
	"dukapos/internal/repositories"
	"dukapos/internal/services"
	"dukapos/pkg/database"
	"dukapos/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.Logger.Level, cfg.Logger.Encoding))
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient)

	minioSvc, err := services.NewMinioService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		log.Fatal("Failed to initialize MinIO service", zap.Error(err))
	}
	if err := minioSvc.EnsureBucketExists(ctx, cfg.Minio.Bucket); err != nil {
		// Uploads fail until the bucket is reachable; readiness reports it.
		log.Warn("MinIO bucket not available", zap.String("bucket", cfg.Minio.Bucket), zap.Error(err))
	}

	keyFunc, endJWKS := jwtKeyFunc(cfg, log)
	if endJWKS != nil {
		defer endJWKS()
	}
	if cfg.JWT.Secret == "" && keyFunc == nil {
		if cfg.Server.AppEnv != "development" {
			log.Fatal("JWT_SECRET or JWT_JWKS_URL is required outside development")
		}
		cfg.JWT.Secret = random.String(32)
		log.Warn("Using generated JWT secret for development")
	}

	// Repositories
	txManager := repositories.NewTxManager(pool)
	orgRepo := repositories.NewOrganizationRepo(pool)
	storageRepo := repositories.NewStorageRepo(pool)
	batchRepo := repositories.NewStockBatchRepo(pool)
	stockLevelRepo := repositories.NewStockLevelRepo(pool)
	productRepo := repositories.NewProductRepo(pool)
	categoryRepo := repositories.NewCategoryRepo(pool)
	saleRepo := repositories.NewSaleRepo(pool)
	returnRepo := repositories.NewReturnRepo(pool)
	supplierRepo := repositories.NewSupplierRepository(pool)
	departmentRepo := repositories.NewDepartmentRepository(pool)
	auditLogsRepo := repositories.NewAuditLogsRepo(pool)

	defaultRates := checkout.Rates{
		Discount: cfg.Pricing.DiscountRate,
		Tax:      cfg.Pricing.TaxRate,
		TaxLabel: cfg.Pricing.TaxLabel,
	}

	// Services
	auditSvc := services.NewAuditLogsService(auditLogsRepo)
	capacitySvc := services.NewCapacityService(storageRepo, cacheSvc, logger.Named(log, "capacity"))
	warehouseSvc := services.NewWarehouseService(storageRepo, cacheSvc, logger.Named(log, "warehouses"))
	inventorySvc := services.NewInventoryService(txManager, batchRepo, productRepo, cacheSvc, auditSvc, logger.Named(log, "inventory"))
	stockLevelSvc := services.NewStockLevelService(stockLevelRepo, orgRepo, cacheSvc, logger.Named(log, "stock_levels"))
	productSvc := services.NewProductService(productRepo, categoryRepo, cacheSvc, logger.Named(log, "products"))
	supplierSvc := services.NewSupplierService(supplierRepo)
	departmentSvc := services.NewDepartmentService(departmentRepo)
	orgSvc := services.NewOrganizationService(orgRepo, defaultRates, auditSvc, logger.Named(log, "organization"))
	uploadSvc := services.NewUploadService(minioSvc, cfg.Minio.Bucket, cfg.Minio.PublicBaseURL, logger.Named(log, "upload"))
	returnsSvc := services.NewReturnsService(txManager, returnRepo, saleRepo, cacheSvc, auditSvc, logger.Named(log, "returns"))
	alertsSvc := services.NewAlertsService(storageRepo, batchRepo, stockLevelRepo, orgRepo, capacitySvc, cacheSvc,
		cfg.Jobs.ExpiryHorizonDay, logger.Named(log, "alerts"))

	salesDeps := services.SalesDeps{
		Tx:           txManager,
		SaleRepo:     saleRepo,
		ProductRepo:  productRepo,
		OrgRepo:      orgRepo,
		Defaults:     defaultRates,
		Notifier:     payments.NewRedisNotifier(redisClient, logger.Named(log, "mpesa")),
		MPesaTimeout: cfg.MPesa.ConfirmationTimeout,
		Cache:        cacheSvc,
		Audit:        auditSvc,
		Log:          logger.Named(log, "sales"),
	}
	if cfg.MPesa.Enabled() {
		salesDeps.MPesa = payments.NewDarajaClient(cfg.MPesa)
	} else {
		log.Warn("M-Pesa credentials not configured, mobile money sales are disabled")
	}
	salesSvc := services.NewSalesService(salesDeps)

	// Background jobs
	alertJob := jobs.NewInventoryAlertJob(orgRepo, alertsSvc, logger.Named(log, "jobs"))
	scheduler, err := background.NewJobScheduler(alertJob, cfg.Jobs.AlertInterval, logger.Named(log, "scheduler"))
	if err != nil {
		log.Fatal("Failed to create job scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error("Failed to stop job scheduler", zap.Error(err))
		}
	}()

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(map[string]handlers.DependencyCheck{
		"database": pool.Ping,
		"redis":    cacheSvc.Ping,
		"storage":  uploadSvc.Ready,
	}, version)
	inventoryHandlers := handlers.NewInventoryHandlers(inventorySvc)
	stockLevelHandlers := handlers.NewStockLevelHandlers(stockLevelSvc)
	warehouseHandlers := handlers.NewWarehouseHandlers(warehouseSvc, capacitySvc)
	salesHandlers := handlers.NewSalesHandlers(salesSvc, logger.Named(log, "sales"))
	returnsHandlers := handlers.NewReturnsHandlers(returnsSvc)
	productHandlers := handlers.NewProductHandlers(productSvc)
	supplierHandlers := handlers.NewSupplierHandlers(supplierSvc)
	departmentHandlers := handlers.NewDepartmentHandlers(departmentSvc)
	organizationHandlers := handlers.NewOrganizationHandlers(orgSvc)
	uploadHandlers := handlers.NewUploadHandlers(uploadSvc)
	auditLogsHandlers := handlers.NewAuditLogsHandlers(auditSvc)
	jobHandlers := handlers.NewJobHandlers(alertsSvc, scheduler)

	rbac := middleware.NewRBACMiddleware(services.NewRBACService())
	versionMiddleware := middleware.NewVersionMiddleware(version)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestLogger(logger.Named(log, "http")))
	e.Use(echoMiddleware.ContextTimeoutWithConfig(echoMiddleware.ContextTimeoutConfig{
		// Mobile money sales block on the payer's confirmation.
		Timeout: cfg.Server.RequestTimeout + cfg.MPesa.ConfirmationTimeout,
	}))

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Daraja cannot send credentials; the callback URL carries a shared token instead.
	e.POST("/api/payments/mpesa/callback", salesHandlers.MPesaCallback, middleware.CallbackToken(cfg.MPesa.CallbackToken))

	api := e.Group("/api")
	api.Use(versionMiddleware.VersionHeader())
	api.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWT.Secret, keyFunc)))
	api.Use(middleware.Identity())

	// Stock
	api.POST("/stock/batches", inventoryHandlers.ReceiveStock, rbac.RequirePermission(services.PermInventoryWrite))
	api.GET("/stock/batches", inventoryHandlers.ListBatches, rbac.RequirePermission(services.PermInventoryRead))
	api.GET("/stock/batches/:id", inventoryHandlers.GetBatch, rbac.RequirePermission(services.PermInventoryRead))
	api.POST("/stock/batches/:id/move", inventoryHandlers.MoveBatch, rbac.RequirePermission(services.PermInventoryWrite))
	api.GET("/stock/levels", stockLevelHandlers.ListStockLevels, rbac.RequirePermission(services.PermInventoryRead))
	api.GET("/stock/levels/export", stockLevelHandlers.ExportStockLevels, rbac.RequirePermission(services.PermInventoryRead))

	// Warehouses
	api.GET("/warehouses", warehouseHandlers.ListWarehouses, rbac.RequirePermission(services.PermWarehouseRead))
	api.POST("/warehouses", warehouseHandlers.CreateWarehouse, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/warehouses/:id", warehouseHandlers.GetWarehouse, rbac.RequirePermission(services.PermWarehouseRead))
	api.PUT("/warehouses/:id", warehouseHandlers.UpdateWarehouse, rbac.RequirePermission(services.PermWarehouseWrite))
	api.DELETE("/warehouses/:id", warehouseHandlers.DeleteWarehouse, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/warehouses/:id/capacity", warehouseHandlers.GetCapacity, rbac.RequirePermission(services.PermWarehouseRead))
	api.GET("/warehouses/:id/zones", warehouseHandlers.ListZones, rbac.RequirePermission(services.PermWarehouseRead))
	api.POST("/warehouses/:id/zones", warehouseHandlers.CreateZone, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/warehouses/:id/units", warehouseHandlers.ListUnits, rbac.RequirePermission(services.PermWarehouseRead))
	api.POST("/warehouses/:id/units", warehouseHandlers.CreateUnit, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/zones/:id", warehouseHandlers.GetZone, rbac.RequirePermission(services.PermWarehouseRead))
	api.PUT("/zones/:id", warehouseHandlers.UpdateZone, rbac.RequirePermission(services.PermWarehouseWrite))
	api.DELETE("/zones/:id", warehouseHandlers.DeleteZone, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/units/:id", warehouseHandlers.GetUnit, rbac.RequirePermission(services.PermWarehouseRead))
	api.PUT("/units/:id", warehouseHandlers.UpdateUnit, rbac.RequirePermission(services.PermWarehouseWrite))
	api.DELETE("/units/:id", warehouseHandlers.DeleteUnit, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/units/:id/positions", warehouseHandlers.ListPositions, rbac.RequirePermission(services.PermWarehouseRead))
	api.POST("/units/:id/positions", warehouseHandlers.CreatePosition, rbac.RequirePermission(services.PermWarehouseWrite))
	api.GET("/positions/:id", warehouseHandlers.GetPosition, rbac.RequirePermission(services.PermWarehouseRead))
	api.PUT("/positions/:id", warehouseHandlers.UpdatePosition, rbac.RequirePermission(services.PermWarehouseWrite))
	api.DELETE("/positions/:id", warehouseHandlers.DeletePosition, rbac.RequirePermission(services.PermWarehouseWrite))

	// Sales and returns. Static /sales/returns is matched before /sales/:id.
	api.POST("/sales", salesHandlers.CreateSale, rbac.RequirePermission(services.PermSalesCreate))
	api.GET("/sales", salesHandlers.ListSales, rbac.RequirePermission(services.PermSalesRead))
	api.POST("/sales/returns", returnsHandlers.CreateReturn, rbac.RequirePermission(services.PermReturnsCreate))
	api.GET("/sales/returns", returnsHandlers.ListReturns, rbac.RequirePermission(services.PermSalesRead))
	api.GET("/sales/:id", salesHandlers.GetSale, rbac.RequirePermission(services.PermSalesRead))
	api.GET("/sales/:id/receipt", salesHandlers.GetReceipt, rbac.RequirePermission(services.PermSalesRead))
	api.GET("/returns/:id", returnsHandlers.GetReturn, rbac.RequirePermission(services.PermSalesRead))
	api.POST("/returns/:id/approve", returnsHandlers.ApproveReturn, rbac.RequirePermission(services.PermReturnsDecide))
	api.POST("/returns/:id/reject", returnsHandlers.RejectReturn, rbac.RequirePermission(services.PermReturnsDecide))

	// Catalog
	api.GET("/products", productHandlers.ListProducts, rbac.RequirePermission(services.PermCatalogRead))
	api.POST("/products", productHandlers.CreateProduct, rbac.RequirePermission(services.PermCatalogWrite))
	api.GET("/products/:id", productHandlers.GetProduct, rbac.RequirePermission(services.PermCatalogRead))
	api.PUT("/products/:id", productHandlers.UpdateProduct, rbac.RequirePermission(services.PermCatalogWrite))
	api.DELETE("/products/:id", productHandlers.DeleteProduct, rbac.RequirePermission(services.PermCatalogWrite))
	api.POST("/products/:id/variants", productHandlers.CreateVariant, rbac.RequirePermission(services.PermCatalogWrite))
	api.GET("/categories", productHandlers.ListCategories, rbac.RequirePermission(services.PermCatalogRead))
	api.POST("/categories", productHandlers.CreateCategory, rbac.RequirePermission(services.PermCatalogWrite))
	api.DELETE("/categories/:id", productHandlers.DeleteCategory, rbac.RequirePermission(services.PermCatalogWrite))

	// Suppliers and departments
	api.GET("/suppliers", supplierHandlers.ListSuppliers, rbac.RequirePermission(services.PermCatalogRead))
	api.POST("/suppliers", supplierHandlers.CreateSupplier, rbac.RequirePermission(services.PermSuppliersWrite))
	api.GET("/suppliers/:id", supplierHandlers.GetSupplier, rbac.RequirePermission(services.PermCatalogRead))
	api.PUT("/suppliers/:id", supplierHandlers.UpdateSupplier, rbac.RequirePermission(services.PermSuppliersWrite))
	api.DELETE("/suppliers/:id", supplierHandlers.DeleteSupplier, rbac.RequirePermission(services.PermSuppliersWrite))
	api.GET("/departments", departmentHandlers.ListDepartments, rbac.RequirePermission(services.PermCatalogRead))
	api.POST("/departments", departmentHandlers.CreateDepartment, rbac.RequirePermission(services.PermDepartmentWrite))
	api.GET("/departments/:id", departmentHandlers.GetDepartment, rbac.RequirePermission(services.PermCatalogRead))
	api.PUT("/departments/:id", departmentHandlers.UpdateDepartment, rbac.RequirePermission(services.PermDepartmentWrite))
	api.DELETE("/departments/:id", departmentHandlers.DeleteDepartment, rbac.RequirePermission(services.PermDepartmentWrite))

	// Organization
	api.GET("/organization/settings", organizationHandlers.GetSettings, rbac.RequirePermission(services.PermSettingsRead))
	api.PUT("/organization/settings", organizationHandlers.UpdateSettings, rbac.RequirePermission(services.PermSettingsWrite))

	// Uploads
	api.POST("/upload", uploadHandlers.Upload, rbac.RequirePermission(services.PermUpload))
	api.DELETE("/upload/*", uploadHandlers.DeleteUpload, rbac.RequirePermission(services.PermUpload))

	// Alerts, jobs and audit
	api.GET("/alerts", jobHandlers.GetAlerts, rbac.RequirePermission(services.PermAlertsRead))
	api.GET("/jobs/status", jobHandlers.GetJobStatus, rbac.RequirePermission(services.PermAlertsRead))
	api.GET("/audit-logs", auditLogsHandlers.ListAuditLogs, rbac.RequirePermission(services.PermAuditRead))
	api.GET("/audit-logs/:table/:id", auditLogsHandlers.GetEntityHistory, rbac.RequirePermission(services.PermAuditRead))

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("Starting server", zap.String("addr", addr), zap.String("env", cfg.Server.AppEnv))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// jwtKeyFunc loads the JWKS when one is configured. A nil key func means
// tokens are verified with the shared secret.
func jwtKeyFunc(cfg *config.Config, log *zap.Logger) (jwt.Keyfunc, func()) {
	if cfg.JWT.JWKSURL == "" {
		return nil, nil
	}
	keyFunc, end, err := middleware.JWKSKeyfunc(cfg.JWT.JWKSURL, logger.Named(log, "jwks"))
	if err != nil {
		log.Fatal("Failed to load JWKS", zap.String("url", cfg.JWT.JWKSURL), zap.Error(err))
	}
	return keyFunc, end
}

// errorHandler renders every error in the common error envelope.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			log.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, common.CreateErrorResponse(common.ErrorCode(status), message, nil))
		}
		if err != nil {
			log.Warn("Failed to write error response", zap.Error(err))
		}
	}
}
