// Command rezervacije starts the reservation HTTP API.
//
// Settings come from the environment (see package config). Reservations are
// kept in a BoltDB file by default; set STORE_DRIVER=postgres to keep them in
// the catalog database instead. When AMQP_URL is set, notifications are
// queued for cmd/mailer; otherwise they are only logged.
package main

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"

	"github.com/nejcselan19/rezervacije/booking"
	"github.com/nejcselan19/rezervacije/catalog"
	"github.com/nejcselan19/rezervacije/config"
	"github.com/nejcselan19/rezervacije/handlers"
	"github.com/nejcselan19/rezervacije/notify"
	"github.com/nejcselan19/rezervacije/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := catalog.Open(cfg.DBConnectionString)
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}

	var cache catalog.Cache
	if cfg.RedisURL != "" {
		rc := catalog.NewRedisCache(cfg.RedisURL, cfg.ItemCacheTTL)
		defer rc.Close()
		cache = rc
	}
	items := catalog.New(db, cache)
	if err := items.Migrate(); err != nil {
		log.Fatalf("failed to migrate catalog: %v", err)
	}

	var reservations booking.ReservationStore
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg := store.NewPostgres(db)
		if err := pg.Migrate(); err != nil {
			log.Fatalf("failed to migrate reservations: %v", err)
		}
		reservations = pg
	default:
		b, err := store.NewBolt(cfg.DBPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer b.Close()
		reservations = b
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher()
	if cfg.AMQPURL != "" {
		pub, err := notify.NewPublisher(cfg.AMQPURL, cfg.MailQueue)
		if err != nil {
			log.Fatalf("failed to connect to broker: %v", err)
		}
		defer pub.Close()
		dispatcher = pub
	}

	engine := booking.NewEngine(items, reservations, dispatcher, booking.Options{
		MaxUnitsPerRequest: cfg.MaxUnitsPerRequest,
		NotifyTimeout:      cfg.NotifyTimeout,
	})

	app := newApp(handlers.New(engine))

	iris.RegisterOnInterrupt(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Shutdown(ctx)
	})

	log.Printf("listening on :%s (store: %s)", cfg.Port, cfg.StoreDriver)
	err = app.Listen(":"+cfg.Port, iris.WithoutInterruptHandler, iris.WithoutServerError(iris.ErrServerClosed))
	if err != nil {
		log.Printf("server error: %v", err)
	}

	log.Println("waiting for pending notifications")
	engine.Wait()
}

func newApp(h *handlers.Handler) *iris.Application {
	app := iris.New()
	app.Validator = validator.New()

	// CORS so the web client served from another origin can reach the API.
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	h.Register(app.Party("/api"))
	return app
}
