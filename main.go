// @title           RFQ Management API
// @version         1.0
// @description     Procurement RFQ backend: templates, supplier invitations, Excel quote round-trips and quote comparison.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	_ "backend/docs"
	"backend/handlers"
	"backend/services"
	"backend/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, strings.Split(extra, ",")...)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var cronRunning int32

// closeOverdueRFQs moves open RFQs past their due date to closed.
func closeOverdueRFQs(db *sql.DB) error {
	result, err := db.Exec(`UPDATE rfqs SET status = 'closed', updated_at = NOW(), updated_by = 'system' WHERE status = 'open' AND due_date < NOW()`)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		log.Printf("Closed %d overdue RFQs", n)
	}
	return nil
}

// purgeStaleWorkbooks sweeps temp workbook files older than a day. The
// writer removes its own temp file on every path; this catches leftovers
// from crashes.
func purgeStaleWorkbooks() error {
	pattern := filepath.Join(os.TempDir(), "quote_workbook_*.xlsx")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to remove stale workbook %s: %v", path, err)
		}
	}
	return nil
}

func main() {
	db := storage.InitDB()
	gdb := storage.InitGormDB()

	tokenStore := storage.NewSQLTokenStore(db)

	// Mailer selection is explicit: a configured SMTP relay, or the log
	// mailer for development.
	var mailer services.Mailer
	if smtp, err := services.NewSMTPMailerFromEnv(); err == nil {
		mailer = smtp
		log.Println("SMTP mailer configured")
	} else {
		log.Printf("SMTP not configured (%v); emails will be logged only", err)
		mailer = services.LogMailer{}
	}
	emailService := services.NewEmailService(db, mailer)

	var pushService *services.PushService
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	pushService, err := services.NewPushService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize push service: %v. Push notifications will be disabled.", err)
		pushService = nil
	} else {
		log.Println("Push service initialized successfully")
	}

	// Nightly maintenance at 01:30
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)
	_, err = c.AddFunc("30 1 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		if err := storage.CleanupExpiredSessions(db); err != nil {
			log.Printf("CleanupExpiredSessions failed: %v", err)
		}
		if err := closeOverdueRFQs(db); err != nil {
			log.Printf("closeOverdueRFQs failed: %v", err)
		}
		if err := purgeStaleWorkbooks(); err != nil {
			log.Printf("purgeStaleWorkbooks failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule maintenance cron job: %v", err)
	}
	c.Start()

	r := gin.Default()
	r.Use(cors.New(CORSConfig()))

	// Authentication
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/logout", handlers.LogoutHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))

	// RFQs
	r.POST("/api/create_rfq", handlers.CreateRFQHandler(db))
	r.GET("/api/get_rfqs", handlers.GetRFQsHandler(db))
	r.GET("/api/get_rfq/:rfq_id", handlers.GetRFQHandler(db))
	r.PUT("/api/update_rfq/:rfq_id", handlers.UpdateRFQHandler(db))
	r.DELETE("/api/delete_rfq/:rfq_id", handlers.DeleteRFQHandler(db))
	r.POST("/api/rfq_suppliers/:rfq_id", handlers.InviteSuppliersHandler(db, gdb, emailService, tokenStore))

	// Templates
	r.POST("/api/create_template", handlers.CreateTemplateHandler(db))
	r.GET("/api/get_templates", handlers.GetTemplatesHandler(db))
	r.GET("/api/get_template/:template_id", handlers.GetTemplateHandler(db))
	r.PUT("/api/update_template/:template_id", handlers.UpdateTemplateHandler(db))

	// Supplier quote requests (portal + workbook round trip)
	r.GET("/api/quote_request/:rfq_id/:supplier_id", handlers.GetQuoteRequestHandler(gdb))
	r.PUT("/api/quote_request/:rfq_id/:supplier_id", handlers.UpdateQuoteRequestHandler(gdb))
	r.DELETE("/api/quote_request/:rfq_id/:supplier_id", handlers.DeleteQuoteRequestHandler(db, gdb))
	r.GET("/api/quote_request_excel/:rfq_id/:supplier_id", handlers.DownloadQuoteRequestExcelHandler(db, gdb, tokenStore))
	r.POST("/api/quote_request_upload/:rfq_id/:supplier_id", handlers.UploadQuoteRequestExcelHandler(db, gdb, tokenStore))
	r.POST("/api/quote_request_submit/:rfq_id/:supplier_id", handlers.SubmitQuoteRequestHandler(db, gdb, emailService, pushService))
	r.GET("/api/supplier_portal_qr/:rfq_id/:supplier_id", handlers.SupplierPortalQRHandler(db))

	// Comparison
	r.GET("/api/quote_comparison/:rfq_id", handlers.GetQuoteComparisonHandler(db, gdb))
	r.GET("/api/quote_comparison_pdf/:rfq_id", handlers.GetQuoteComparisonPDFHandler(db, gdb))

	// Email templates
	r.POST("/api/email-templates", handlers.CreateEmailTemplate(db))
	r.GET("/api/email-templates", handlers.GetEmailTemplates(db))
	r.GET("/api/email-templates/:id", handlers.GetEmailTemplateByID(db))
	r.PUT("/api/email-templates/:id", handlers.UpdateEmailTemplate(db))
	r.DELETE("/api/email-templates/:id", handlers.DeleteEmailTemplate(db))

	// Activity logs
	r.GET("/api/logs", handlers.GetActivityLogsHandler(db))

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil || portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT environment variable: %s", port)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := c.Stop()
	<-cronCtx.Done()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
