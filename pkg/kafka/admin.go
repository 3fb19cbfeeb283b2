package _kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ensureTopics creates every configured topic that does not already
// exist, using a throwaway kadm.Client over the same brokers. It is
// the NEW EnsureTopics preflight: run once, before Subscribe, never
// again once Runloop.Run enters the command fold. TopicAlreadyExists
// is swallowed so a concurrent creator racing us is not an error.
func ensureTopics(ctx context.Context, cfg *Config) error {
	cl, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return fmt.Errorf("kafka: admin client: %w", err)
	}
	defer cl.Close()

	adm := kadm.NewClient(cl)
	defer adm.Close()

	resp, err := adm.CreateTopics(ctx, -1, -1, nil, cfg.Topics...)
	if err != nil {
		return fmt.Errorf("kafka: ensure topics: %w", err)
	}
	for topic, r := range resp {
		if r.Err != nil && r.Err != kerr.TopicAlreadyExists {
			return fmt.Errorf("kafka: create topic %q: %w", topic, r.Err)
		}
	}
	return nil
}
