package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/config"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/handlers"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/middleware"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/notify"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store/memstore"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/utils"
)

// backend is everything the services need from persistence. *store.DB and
// *memstore.Store both satisfy it.
type backend interface {
	service.BookStore
	service.OrderStore
	service.UserStore
	service.SettingsStore
	service.MailSettingsStore
	notify.Store
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}
	if os.Getenv("APP_ENV") == "production" {
		config.ValidateEnv()
	}

	ctx := context.Background()
	var db backend
	if cfg.StoreBackend == "memory" {
		log.Println("warning: STORE_BACKEND=memory; data is lost on restart")
		db = memstore.New()
	} else {
		mongoDB, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
		if err != nil {
			log.Fatal("mongodb:", err)
		}
		defer func() {
			if err := mongoDB.Disconnect(context.Background()); err != nil {
				log.Println("mongodb disconnect:", err)
			}
		}()
		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			log.Fatal("mongodb indexes:", err)
		}
		db = mongoDB
	}

	var box *utils.SecretBox
	if cfg.MailConfigEncryptionKey != nil {
		if box, err = utils.NewSecretBox(cfg.MailConfigEncryptionKey); err != nil {
			log.Fatal("mail encryption key:", err)
		}
	}

	var uploads *service.UploadService
	if cfg.S3Bucket != "" {
		s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey, cfg.S3PublicBase)
		if err != nil {
			log.Fatal("s3:", err)
		}
		uploads = service.NewUploadService(s3Service, cfg.MaxUploadBytes())
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; uploads will fail")
	}

	// Notification outbox: Redis delayed queue when configured, else in process.
	var queue notify.Queue
	if cfg.RedisURL != "" {
		rq, err := notify.NewRedisQueue(cfg.RedisURL)
		if err != nil {
			log.Fatal("redis:", err)
		}
		queue = rq
	} else {
		log.Println("warning: REDIS_URL not set; notification queue is in memory")
		queue = notify.NewMemoryQueue()
	}
	defer queue.Close()

	mailer := notify.NewMailer(db, models.MailSettings{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		From:        cfg.MailFrom,
		AdminNotify: cfg.AdminNotify,
	}, box)
	sinks := map[string]notify.Sink{models.ChannelEmail: mailer}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaSink.Close()
		sinks[models.ChannelEvent] = kafkaSink
	} else {
		sinks[models.ChannelEvent] = notify.LogSink{}
	}
	outbox := notify.NewOutbox(db, queue)
	notifier := notify.NewNotifier(outbox, mailer.AdminAddress)
	dispatcher := notify.NewDispatcher(db, queue, sinks, notify.DispatcherConfig{MaxAttempts: cfg.MaxAttempts})
	if err := dispatcher.Recover(ctx); err != nil {
		log.Println("notify recover:", err)
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	if err := authService.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("seed admin:", err)
	}
	settingsService := service.NewSettingsService(db)
	orderService := service.NewOrderService(db, db, db, notifier)

	authHandler := &handlers.AuthHandler{Auth: authService}
	usersHandler := &handlers.UsersHandler{Auth: authService}
	booksHandler := &handlers.BooksHandler{Catalog: service.NewCatalogService(db), ISBN: service.NewISBNLookup()}
	ordersHandler := &handlers.OrdersHandler{Orders: orderService}
	uploadHandler := &handlers.UploadHandler{Uploads: uploads}
	settingsHandler := &handlers.SettingsHandler{Settings: settingsService}
	mailHandler := &handlers.MailSettingsHandler{Mail: service.NewMailSettingsService(db, box)}
	notificationsHandler := &handlers.NotificationsHandler{Outbox: outbox}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Maintenance(settingsService, authService, service.DefaultBypassPolicy()))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"bookshop api"}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/books", booksHandler.List)
		r.Get("/books/{id}", booksHandler.Get)
		r.Get("/settings", settingsHandler.Get)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService))
			r.Get("/auth/me", authHandler.Me)
			r.Post("/orders", ordersHandler.Create)
			r.Get("/orders/my-orders", ordersHandler.Mine)
			r.Get("/orders/{id}", ordersHandler.Get)
			r.Put("/orders/{id}/receipt", ordersHandler.AttachReceipt)
			r.Post("/upload/receipt", uploadHandler.Receipt)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/books", booksHandler.Create)
				r.Put("/books/{id}", booksHandler.Update)
				r.Delete("/books/{id}", booksHandler.Delete)
				r.Get("/books/lookup/{isbn}", booksHandler.Lookup)
				r.Get("/orders/all", ordersHandler.All)
				r.Put("/orders/{id}/status", ordersHandler.UpdateStatus)
				r.Put("/orders/{id}/verify", ordersHandler.Verify)
				r.Post("/upload/image", uploadHandler.Image)
				r.Put("/settings", settingsHandler.Update)
				r.Get("/mail-settings", mailHandler.Get)
				r.Put("/mail-settings", mailHandler.Save)
				r.Get("/users", usersHandler.List)
				r.Put("/users/{id}/role", usersHandler.ChangeRole)
				r.Get("/notifications", notificationsHandler.List)
				r.Post("/notifications/{id}/retry", notificationsHandler.Retry)
			})
		})
	})

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := make(chan struct{})
	go func() {
		dispatcher.Run(workerCtx, cfg.DispatchWorkers)
		close(workersDone)
	}()

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
	stopWorkers()
	<-workersDone
}
