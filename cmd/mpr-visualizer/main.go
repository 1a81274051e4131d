package main

import (
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"mpr-visualizer/internal/app"
	"mpr-visualizer/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	writeConfig := flag.Bool("write-config", false, "write the default configuration and exit")
	flag.Parse()

	if *writeConfig {
		path := *configPath
		if path == "" {
			path = config.DefaultFileName
		}
		if err := config.Save(config.Default(), path); err != nil {
			log.Fatalf("Writing default configuration failed: %v", err)
		}
		log.Printf("Default configuration written to %s", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration load failed: %v", err)
	}

	// Start profiling server if enabled
	if os.Getenv("MPR_PPROF") == "true" {
		go func() {
			log.Println("Starting profiling server on :6060")
			log.Println(http.ListenAndServe("localhost:6060", nil))
		}()
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application execution failed: %v", err)
	}
}
