package dependency

import (
	"qrlogin-svc/src/clients"
	"qrlogin-svc/src/internal/code"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/qrlogin"
	"qrlogin-svc/src/internal/session"
	"qrlogin-svc/src/internal/token"
	"qrlogin-svc/src/internal/user"
	"time"

	"github.com/gin-gonic/gin"
)

// Manager owns the shared components and injects them into handlers.
// Nothing here is ambient global state; each request path reaches
// these instances only through injection.
type Manager struct {
	Router        *gin.Engine
	Config        *config.Configuration
	Mongodb       *clients.MongoDB
	Redis         *clients.RedisClient
	RabbitMQ      *clients.RabbitMQ
	Authority     *token.Authority
	SessionStore  session.Store
	Registry      *qrlogin.Registry
	QrService     qrlogin.Service
	QrHandler     qrlogin.Handler
	UserDirectory user.Directory
	UserHandler   user.Handler
	CodeHandler   code.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) (*Manager, error) {

	authority, err := token.NewAuthority(&cfg.Security)
	if err != nil {
		return nil, err
	}

	sessionStore := session.NewRedisStore(redisClient.Client,
		time.Duration(cfg.QrLogin.RetentionSeconds)*time.Second)
	registry := qrlogin.NewRegistry(sessionStore,
		time.Duration(cfg.QrLogin.HeartbeatSeconds)*time.Second,
		time.Duration(cfg.QrLogin.ExpiryCheckSeconds)*time.Second)
	renderer := qrlogin.NewPNGRenderer(cfg.QrLogin.ImageSize)

	userDirectory := user.NewDirectory(mongodb, cfg.Database.UserCollection)
	qrService := qrlogin.NewService(sessionStore, authority, userDirectory, registry, renderer, &cfg.QrLogin)
	qrHandler := qrlogin.NewHandler(cfg, qrService, registry)
	userHandler := user.NewHandler(cfg, authority)

	codeRepository := code.NewRepository(redisClient.Client)
	codePublisher := code.NewPublisher(rabbitMQ.Channel, &cfg.Queue.RabbitMQ)
	codeHandler := code.NewHandler(cfg, codeRepository, codePublisher)

	return &Manager{
		Router:        router,
		Config:        cfg,
		Mongodb:       mongodb,
		Redis:         redisClient,
		RabbitMQ:      rabbitMQ,
		Authority:     authority,
		SessionStore:  sessionStore,
		Registry:      registry,
		QrService:     qrService,
		QrHandler:     qrHandler,
		UserDirectory: userDirectory,
		UserHandler:   userHandler,
		CodeHandler:   codeHandler,
	}, nil
}
