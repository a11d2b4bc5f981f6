package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"epharma/auth"
	"epharma/cart"
	"epharma/checkout"
	"epharma/migrations"
	"epharma/notify"
	"epharma/rx"
	"epharma/store"
	"epharma/web"
)

func main() {
	_ = godotenv.Load()

	pgDSN := os.Getenv("POSTGRES_DSN")
	bindAddr := os.Getenv("BIND_ADDR")
	tlsCert := os.Getenv("TLS_CERT")
	tlsKey := os.Getenv("TLS_KEY")
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	baseURL := os.Getenv("BASE_URL")

	if signingKey == "" {
		logrus.Fatal("JWT_SIGNING_KEY is required")
	}

	db, err := sqlx.Open("postgres", pgDSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open DB")
	}

	err = migrations.Migrate(pgDSN)
	if err != nil {
		logrus.WithError(err).Fatal("failed to migrate")
	}

	pg := store.NewPG(db)

	var catalog store.CatalogStore = pg
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		catalog = store.NewCachedCatalog(pg, redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}))
	}

	var (
		objects   rx.ObjectStore
		uploadDir string
	)
	if s3Endpoint := os.Getenv("S3_ENDPOINT"); s3Endpoint != "" {
		objects, err = rx.NewS3Store(rx.S3Config{
			Endpoint:  s3Endpoint,
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			UseSSL:    os.Getenv("S3_USE_SSL") == "true",
			BaseURL:   os.Getenv("S3_BASE_URL"),
		})
		if err != nil {
			logrus.WithError(err).Fatal("failed to init object storage")
		}
	} else {
		uploadDir = os.Getenv("UPLOAD_DIR")
		if uploadDir == "" {
			uploadDir = "uploads"
		}
		objects = &rx.DiskStore{Dir: uploadDir, BaseURL: baseURL + "/uploads"}
	}

	notifier := &notify.WhatsApp{
		Number:     os.Getenv("WHATSAPP_NUMBER"),
		WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		Client:     &http.Client{Timeout: 30 * time.Second},
	}

	authSvc := auth.NewService(pg, signingKey, 72)
	cartSvc := cart.NewService(catalog, pg)
	checkoutSvc := checkout.NewService(pg, catalog, pg, pg)
	rxSvc := rx.NewService(pg, pg, objects, notifier, baseURL)

	app := web.New(web.Config{
		Auth:      authSvc,
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Rx:        rxSvc,
		Catalog:   catalog,
		UploadDir: uploadDir,
	})

	var wg sync.WaitGroup

	wg.Add(1)
	if tlsCert != "" && tlsKey != "" {
		go func() {
			defer wg.Done()
			err := app.ListenTLS(bindAddr, tlsCert, tlsKey)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Fatal("failed to start web server")
			}
		}()
	} else {
		go func() {
			defer wg.Done()
			err := app.Listen(bindAddr)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Fatal("failed to start web server")
			}
		}()
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	err = app.Shutdown()
	if err != nil {
		logrus.WithError(err).Fatal("failed to shutdown web server")
	}

	wg.Wait()
}
