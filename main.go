package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camden-git/flockregistry/config"
	"github.com/camden-git/flockregistry/database"
	"github.com/camden-git/flockregistry/handlers"
	"github.com/camden-git/flockregistry/media"
	"github.com/camden-git/flockregistry/repository"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.PhotosPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	mediaStore, err := media.NewLocalStorage(cfg.UploadsPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore)

	animalRepo := repository.NewAnimalRepository(db)
	photoPipeline := media.NewPipeline(animalRepo, mediaStore, mediaProcessor, cfg.BaseURL)

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing photos in: %s", cfg.PhotosPath)
	log.Printf("Building photo URLs from base: %s", cfg.BaseURL)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	animalHandler := &handlers.AnimalHandler{Repo: animalRepo}
	photoHandler := &handlers.PhotoHandler{Pipeline: photoPipeline, Cfg: cfg}

	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Post("/", animalHandler.CreateAnimal)
			r.Get("/", animalHandler.ListAnimals)
			r.Get("/stats/summary", animalHandler.GetStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", animalHandler.GetAnimal)
				r.Put("/", animalHandler.UpdateAnimal)
				r.Delete("/", animalHandler.DeleteAnimal)
			})
		})

		r.Post("/upload-photo", photoHandler.UploadPhoto)
		r.Post("/upload-photos", photoHandler.UploadPhotos)
		r.Delete("/delete-photo", photoHandler.DeletePhoto)
		r.Route("/photos/{earTag}", func(r chi.Router) {
			r.Get("/", photoHandler.ListPhotos)
			r.Get("/orphans", photoHandler.ListOrphans)
		})
	})

	photosSubDir := filepath.Base(cfg.PhotosPath)
	r.Get("/"+photosSubDir+"/*", handlers.AssetServer(cfg.UploadsPath, photosSubDir))
	log.Printf("Registered photo server at /%s/*", photosSubDir)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: Server error: %v", err)
		}
	}()

	<-stopCtx.Done()
	log.Println("Shutdown signal received, draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	log.Println("Server stopped")
}
