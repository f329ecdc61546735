package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OldStager01/cloud-optimizer/internal/fleetsim"
	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "simulator server port")
	providerName := flag.String("provider", "aws", "cloud provider flavor (aws, gcp, azure)")
	region := flag.String("region", "us-east-1", "region the fleet reports")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")

	name := models.CloudProvider(*providerName)
	if !name.Valid() {
		return fmt.Errorf("unknown provider %q, expected one of %v", *providerName, models.KnownProviders)
	}

	logger.Info("Starting fleet simulator")

	sim := fleetsim.NewServer(fleetsim.Config{
		Port:     *port,
		Provider: name,
		Region:   *region,
	})

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start fleet simulator: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down fleet simulator")
	return sim.Stop()
}
