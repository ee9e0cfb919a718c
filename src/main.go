package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"vbs/src/boot"
	"vbs/src/common"
	"vbs/src/config"
	"vbs/src/controllers"
	"vbs/src/lib"
	"vbs/src/middlewares"
	"vbs/src/utils"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	apiPrefix string = "/api/v1"
)

// services holds everything the route handlers need. It is built once in main
// and by the tests.
type services struct {
	cfg       *config.Config
	db        *gorm.DB
	bookings  *common.Bookings
	payments  *common.Payments
	tickets   *common.Tickets
	inventory *common.Inventory
}

var mpesaPhoneValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	phone, ok := fl.Field().Interface().(string)
	return ok && utils.IsMpesaPhone(phone)
}

var departureDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	return ok && utils.IsDepartureDate(date)
}

var departureTimeValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(string)
	return ok && utils.IsDepartureTime(t)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("mpesaphone", mpesaPhoneValidatorFunc)
		v.RegisterValidation("departuredate", departureDateValidatorFunc)
		v.RegisterValidation("departuretime", departureTimeValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.RequestID)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine, cfg *config.Config) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if cfg.MaintenanceMode {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func guestAuthRoutes(g *gin.Engine, s *services) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	guest.
		POST("/login", func(ctx *gin.Context) {
			token, status, err := controllers.AuthLogin(ctx, s.db, s.cfg)
			if err != nil {
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}

			ctx.JSON(http.StatusOK, gin.H{
				"token": token,
			})
		}).
		POST("/register", func(ctx *gin.Context) {
			user, status, err := controllers.AuthRegister(ctx, s.db)
			if err != nil {
				log.Printf("[AuthRegister] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}

			ctx.JSON(status, gin.H{"data": user})
		})
	return guest
}

func accountRoutes(g *gin.RouterGroup, s *services) *gin.RouterGroup {
	g.
		GET("/me", func(ctx *gin.Context) {
			user, status, err := controllers.AccountProfile(ctx, s.db)
			if err != nil {
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		GET("/me/bookings", func(ctx *gin.Context) {
			bookings, status, err := controllers.AccountBookings(ctx, s.bookings)
			if err != nil {
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		})
	return g
}

// registerRoutes mounts every route on router. The authenticated group is
// created last so its middleware does not leak onto public routes.
func registerRoutes(router *gin.Engine, s *services) {
	router = maintenanceModeMiddleware(router, s.cfg)

	public := apiv1Group(router)
	vehicleHandlers(public, s)
	bookingHandlers(public, s)
	paymentHandlers(public, s)

	guestAuthRoutes(router, s)

	stripeWebhookRoute(router, s)

	mpesaCallbackRoute(router, s)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware(s.cfg.JWTSecret, s.db))
	{
		accountRoutes(authorized, s)
		ticketHandlers(authorized, s)
		vehicleAdminHandlers(authorized, s)
	}
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	gin.DefaultWriter = io.MultiWriter(&lumberjack.Logger{
		Filename:   apiLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	initLogger()

	ctx := context.Background()
	if cfg.AWSSecretsID != "" {
		if err := config.LoadSecrets(ctx, cfg); err != nil {
			log.Printf("Error loading secrets: %s\n", err.Error())
		}
	}
	if err := cfg.Validate(); err != nil {
		if cfg.IsProd() {
			log.Fatalf("Invalid configuration: %s", err.Error())
		}
		log.Printf("Configuration incomplete: %s\n", err.Error())
	}

	db := boot.InitDb(cfg)
	rd := lib.GetRedisClient(cfg.RedisURL)

	payments := &common.Payments{
		DB:       db,
		Config:   cfg,
		Checkout: lib.NewStripeGateway(cfg),
		Push:     lib.NewMpesaClient(cfg, rd),
		Cache:    lib.NewStatusCache(rd, cfg.StatusCacheTTL),
	}
	var publishers lib.Publishers
	if events := lib.NewPublisher(ctx, cfg); events != nil {
		publishers = append(publishers, events)
		if kp, ok := events.(*lib.KafkaPublisher); ok {
			defer kp.Close()
		}
	}
	if pc := lib.GetPusherClient(cfg); pc != nil {
		publishers = append(publishers, lib.NewPusherNotifier(pc))
	}
	if len(publishers) > 0 {
		payments.Events = publishers
	}
	if mailer := lib.NewSMTPMailer(cfg); mailer != nil {
		payments.Mailer = mailer
	}
	s := &services{
		cfg:       cfg,
		db:        db,
		bookings:  common.NewBookings(db),
		payments:  payments,
		tickets:   &common.Tickets{DB: db},
		inventory: &common.Inventory{DB: db},
	}

	boot.InitScheduler(s.bookings, cfg)
	defer boot.StopScheduler()
	go boot.InitBroker(cfg)

	router := setupRouter()

	if cfg.Env == config.Local {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			if cfg.AppHost == "" {
				return false
			}
			match, _ := regexp.MatchString(regexp.QuoteMeta(cfg.AppHost), origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	registerValidators()

	registerRoutes(router, s)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
