package server

import (
	"net/http"
	"qrlogin-svc/src/clients"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/dependency"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

type Server struct {
	cfg  *config.Configuration
	deps *dependency.Manager
}

func New(cfg *config.Configuration) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Start() error {
	gin.SetMode(s.cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	mongodb, err := clients.NewMongoDB(&s.cfg.Database)
	if err != nil {
		return err
	}

	redisClient, err := clients.NewRedisClient(&s.cfg.Redis)
	if err != nil {
		return err
	}

	rabbitMQ, err := clients.NewRabbitMQ(&s.cfg.Queue)
	if err != nil {
		return err
	}
	if err := rabbitMQ.SetupQueue(); err != nil {
		return err
	}

	deps, err := dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, s.cfg)
	if err != nil {
		return err
	}
	s.deps = deps

	SetupRoutes(deps)

	httpServer := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	log.Infof("Server listening on http://0.0.0.0:%s", s.cfg.Server.Port)
	return httpServer.ListenAndServe()
}
