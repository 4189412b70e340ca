package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ironsheep/face-detect-mcp/internal/store"
	"github.com/ironsheep/face-detect-mcp/internal/worker"
)

var (
	mqttBroker   string
	workerRecord bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve detection requests over MQTT",
	Long: `Subscribe to the configured request topic and answer each request with
the faces found in its base64 image payload. With --record, results are
also stored in the database.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&mqttBroker, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (default: $FACEDETECT_MQTT_BROKER)")
	workerCmd.Flags().BoolVar(&workerRecord, "record", false, "Store every result in the database")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if mqttBroker != "" {
		cfg.MQTT.Broker = mqttBroker
	}

	svc, err := openService()
	if err != nil {
		return err
	}

	w := worker.New(svc, cfg.MQTT)
	if workerRecord {
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}
		w.WithRecorder(s, store.PayloadID)
	}

	log.Printf("Worker using backend %s, requests on %s", svc.Backend(), cfg.MQTT.RequestTopic)
	return w.Run(ctx)
}
