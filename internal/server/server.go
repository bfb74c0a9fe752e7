package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/botm/internal/api"
	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/event"
	"github.com/victornm/botm/internal/leaderboard"
	"github.com/victornm/botm/internal/measurement"
	"github.com/victornm/botm/internal/member"
	"github.com/victornm/botm/internal/memstore"
	"github.com/victornm/botm/internal/migrations"
	"github.com/victornm/botm/internal/session"
	"github.com/victornm/botm/internal/telemetry"
	"github.com/victornm/botm/internal/workout"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTP struct {
		Port int32
		// SecureCookie marks the session cookie as HTTPS only.
		SecureCookie bool
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level  string
		Format string
	}

	Session struct {
		Secret string
		TTL    time.Duration
	}

	// Storage is either "postgres" or "memory". Memory keeps everything in process and
	// is meant for local runs only.
	Storage string

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
		// Migrate applies the embedded schema migrations on start.
		Migrate bool
	}
}

// DefaultConfig holds the values used for keys missing from the config file.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Session.TTL = session.DefaultTTL
	c.Storage = StoragePostgres
	c.Redis.Leaderboard.Prefix = "botm:leaderboard"
	c.Redis.Pubsub.Prefix = "botm:pubsub"
	c.Postgres.Migrate = true
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		session     *session.Service
		member      *member.Service
		measurement *measurement.Service
		competition *competition.Service
		workout     *workout.Service
		leaderboard *leaderboard.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	if c.Session.Secret == "" {
		return nil, fmt.Errorf("server: session secret not set")
	}

	logger, err := telemetry.NewLogger(os.Stdout, c.Log.Level, c.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	slog.SetDefault(logger)

	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	switch s.c.Storage {
	case StoragePostgres:
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	case StorageMemory:
		slog.Warn("server: using in-memory storage, data is lost on shutdown")
	default:
		return fmt.Errorf("unknown storage %q", s.c.Storage)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg := s.c.Postgres
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pg.User, pg.Pass, pg.Addr, pg.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	if pg.Migrate {
		if err := migrations.Apply(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("migrate: %w", err)
		}
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	var (
		memberStore      member.Store
		measurementStore measurement.Store
		competitionStore competition.Store
		workoutStore     workout.Store
	)

	if db := s.infra.postgres; db != nil {
		memberStore = member.NewPostgresStore(db)
		measurementStore = measurement.NewPostgresStore(db)
		competitionStore = competition.NewPostgresStore(db)
		workoutStore = workout.NewPostgresStore(db)
	} else {
		ms := memstore.New()
		memberStore, measurementStore, competitionStore, workoutStore = ms, ms, ms, ms
	}

	s.service.session = session.NewService(session.Config{
		Secret: []byte(s.c.Session.Secret),
		TTL:    s.c.Session.TTL,
	})

	s.service.member = member.NewService(member.Config{
		Store:    memberStore,
		EventBus: s.eb,
	})

	s.service.measurement = measurement.NewService(measurement.Config{
		Store: measurementStore,
	})

	s.service.competition = competition.NewService(competition.Config{
		Store:    competitionStore,
		EventBus: s.eb,
	})

	s.service.workout = workout.NewService(workout.Config{
		Store: workoutStore,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.GET("/healthz", s.healthz)

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Member:       s.service.member,
		Measurement:  s.service.measurement,
		Competition:  s.service.competition,
		Workout:      s.service.workout,
		Leaderboard:  s.service.leaderboard,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
		SecureCookie: s.c.HTTP.SecureCookie,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.infra.redis.leaderboard.Ping(ctx).Err() })
	eg.Go(func() error { return s.infra.redis.pubsub.Ping(ctx).Err() })
	if db := s.infra.postgres; db != nil {
		eg.Go(func() error { return db.Ping(ctx) })
	}

	if err := eg.Wait(); err != nil {
		slog.WarnContext(ctx, "server: health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.service.leaderboard.Stop()
	s.eb.Stop()

	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}
	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
