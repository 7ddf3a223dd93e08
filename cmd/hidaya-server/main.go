package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/aladhan"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/alquran"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/audio"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/cache"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/geoip"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/mqttbridge"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/remote"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/buildinfo"
	"github.com/Guilhem-Bonnet/hidaya/internal/config"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

// Téléchargement d'un fichier audio complet lors du préchargement.
const downloadTimeout = 2 * time.Minute

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Fichier de configuration TOML (optionnel)")
	addr := flag.String("addr", "", "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", "", "Chemin SQLite (ex: hidaya.db)")
	audioDriver := flag.String("audio", "", "Sortie audio: none | mpv")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *audioDriver != "" {
		cfg.Audio.Driver = *audioDriver
	}

	logger := newLogger(cfg.Log)
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", cfg.DBPath).Msg("starting")

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(shutdownCtx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()
	defer bus.Close()

	jobsRepo := sqlite.NewJobsRepository(db.X)
	jobsSvc := app.NewJobService(jobsRepo, bus)
	settingsSvc := app.NewSettingsService(sqlite.NewSettingsRepository(db.X), bus)
	offlineRepo := sqlite.NewOfflineRepository(db.X)

	contentCache, closeCache := newCache(shutdownCtx, logger, cfg.Cache)
	defer closeCache()
	origin := alquran.New(cfg.Content.Timeout.Duration).WithEndpoint(cfg.Content.Endpoint)
	content := app.NewCachedContent(logger.With().Str("component", "content").Logger(), origin, contentCache, cfg.Cache.TTL.Duration)

	out := newAudioOutput(logger, cfg.Audio)
	if closer, ok := out.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	player := app.NewPlaybackController(logger.With().Str("component", "playback").Logger(), out, bus)
	go player.Run(shutdownCtx)

	library := app.NewOfflineLibrary(cfg.Offline.Dir)
	reader := app.NewReader(logger.With().Str("component", "reader").Logger(), content, settingsSvc.Get, player, app.ReaderOptions{
		Translation: cfg.Content.Translation,
		Offline:     library,
		Bus:         bus,
	})

	settingsSvc.OnChange(app.ApplySettings(logger.With().Str("component", "settings").Logger(), reader, player))
	if s, err := settingsSvc.Get(shutdownCtx); err == nil {
		_ = player.SetSpeed(s.Speed)
		_ = player.SetVolume(s.Volume)
	} else {
		logger.Warn().Err(err).Msg("failed to load settings, using defaults")
	}

	search := app.NewSearchService(logger.With().Str("component", "search").Logger(), reader, bus, cfg.Search.Debounce.Duration)
	defer search.Close()
	daily := app.NewDailyVerseService(logger.With().Str("component", "daily").Logger(), content, cfg.Content.Translation)

	var configured *domain.Coordinates
	if cfg.Prayer.Latitude != nil && cfg.Prayer.Longitude != nil {
		configured = &domain.Coordinates{Latitude: *cfg.Prayer.Latitude, Longitude: *cfg.Prayer.Longitude}
	}
	prayer := app.NewPrayerService(
		logger.With().Str("component", "prayer").Logger(),
		aladhan.New(cfg.Content.Timeout.Duration).WithEndpoint(cfg.Prayer.Endpoint).WithMethod(cfg.Prayer.Method),
		geoip.New(cfg.Content.Timeout.Duration).WithEndpoint(cfg.Prayer.GeoIPEndpoint),
		app.PrayerServiceOptions{Configured: configured, Bus: bus},
	)
	refresher := app.NewPrayerRefresher(logger.With().Str("component", "prayer-refresher").Logger(), prayer)
	refresher.TickInterval = cfg.Prayer.Refresh.Duration
	go refresher.Run(shutdownCtx)

	commands := app.NewDispatcher(reader, player, settingsSvc)

	// Préchargement hors-ligne: les jobs "prefetch" tournent dans le pool de workers.
	limiter := app.NewDynamicLimiter(cfg.Offline.Concurrency)
	opts := app.DefaultWorkerOptions()
	opts.Executors = app.NewExecutorRegistry(map[string]app.JobExecutor{
		domain.JobTypePrefetch: app.PrefetchExecutor{
			Content: content,
			Library: library,
			Limiter: limiter,
			Client:  remote.NewClient(downloadTimeout),
		},
	})
	pool := app.NewWorkerPool(shutdownCtx, logger.With().Str("component", "worker").Logger(), jobsRepo, bus, opts)
	pool.SetCount(cfg.Offline.Workers)
	defer pool.Close()
	logger.Info().Int("workers", cfg.Offline.Workers).Int("concurrency", cfg.Offline.Concurrency).Msg("workers started")

	recorder := app.NewOfflineRecorder(logger.With().Str("component", "offline-recorder").Logger(), bus, offlineRepo)
	go recorder.Run(shutdownCtx)

	if cfg.MQTT.Broker != "" {
		bridge := mqttbridge.New(logger.With().Str("component", "mqtt").Logger(), mqttbridge.Options{
			Broker:        cfg.MQTT.Broker,
			ClientID:      cfg.MQTT.ClientID,
			Username:      cfg.MQTT.Username,
			Password:      cfg.MQTT.Password,
			EventsPrefix:  cfg.MQTT.EventsPrefix,
			CommandsTopic: cfg.MQTT.CommandsTopic,
		}, bus, commands)
		go func() {
			if err := bridge.Run(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("mqtt bridge stopped")
			}
		}()
	}

	srv := httpapi.NewServer(logger, httpapi.Deps{
		Jobs:     jobsSvc,
		Settings: settingsSvc,
		Reader:   reader,
		Player:   player,
		Search:   search,
		Daily:    daily,
		Prayer:   prayer,
		Commands: commands,
		Offline:  offlineRepo,
		Bus:      bus,
		Store:    db,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	player.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}

func newLogger(cfg config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("app", "hidaya-server").Logger()
}

// newCache renvoie le cache de contenu; Redis indisponible au démarrage retombe sur la mémoire.
func newCache(ctx context.Context, logger zerolog.Logger, cfg config.Cache) (ports.Cache, func()) {
	if cfg.Backend == "redis" {
		rc := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := rc.Ping(pingCtx)
		if err == nil {
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis content cache")
			return rc, func() { _ = rc.Close() }
		}
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, falling back to memory cache")
		_ = rc.Close()
	}

	mem := cache.NewMemory()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					logger.Debug().Int("evicted", n).Msg("content cache swept")
				}
			}
		}
	}()
	return mem, func() {}
}

func newAudioOutput(logger zerolog.Logger, cfg config.Audio) ports.AudioOutput {
	if cfg.Driver == "mpv" {
		p := audio.NewProcess(logger.With().Str("component", "audio").Logger(), cfg.Binary)
		if p.Available() {
			logger.Info().Str("binary", cfg.Binary).Msg("using mpv audio output")
			return p
		}
		logger.Warn().Str("binary", cfg.Binary).Msg("audio player not found, playback is delegated to clients")
	}
	return audio.NewNull()
}
