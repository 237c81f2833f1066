// Package starter provides a reusable ETOS suite starter library that can
// be embedded into other Go applications.
//
// # Overview
//
// The suite starter listens for test execution recipe collection created
// (TERCC) events, renders a Kubernetes Job manifest from a template and
// submits exactly one Job per qualifying event to the cluster.
//
// # Basic Usage
//
// Create a starter from a configuration file:
//
//	st, err := starter.NewFromEnv("configs/suitestarter.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := st.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Embedding
//
// Applications that bring their own event source can skip the Kafka
// consumer and feed the dispatcher directly:
//
//	ok, err := st.Dispatcher().OnEvent(ctx, event)
//
// and mount st.Handler() into an existing HTTP server for health, status
// and metrics.
package starter
