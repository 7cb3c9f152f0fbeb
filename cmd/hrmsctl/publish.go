package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	appconfig "github.com/Sokol111/hrms-commons/pkg/core/config"
	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/messaging"
	kafkaconfig "github.com/Sokol111/hrms-commons/pkg/messaging/kafka/config"
	"github.com/Sokol111/hrms-commons/pkg/messaging/publish"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

const maxPayloadLine = 1 << 20

type publishFlags struct {
	eventType     string
	domain        string
	data          string
	file          string
	topic         string
	correlationID string
	concurrency   int
	timeout       time.Duration
}

func newPublishCmd(flags *globalFlags) *cobra.Command {
	pf := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish events through the configured publisher",
		Long: `Publish one event per payload through the publisher selected by
publish.mode. Payloads are the event's data object; the envelope is built
here. --file reads one JSON payload per line ("-" for stdin).

Notification events reuse the event types of other domains, so pass
--domain notification for them.

Example:
  hrmsctl publish --type leave.approved --data '{"leave_id":1,"employee_id":7,...}'
  hrmsctl publish --type audit.user.action --file audit.ndjson --concurrency 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, flags, pf)
		},
	}

	// Required flags
	cmd.Flags().StringVarP(&pf.eventType, "type", "t", "", "Event type, see 'hrmsctl types' (required)")

	// Payload source, one of
	cmd.Flags().StringVarP(&pf.data, "data", "d", "", "Event data as a JSON object")
	cmd.Flags().StringVarP(&pf.file, "file", "f", "", "File with one JSON data object per line, - for stdin")

	// Optional flags
	cmd.Flags().StringVar(&pf.domain, "domain", "", "Payload domain (default: the event type's domain)")
	cmd.Flags().StringVar(&pf.topic, "topic", "", "Topic override (default: the domain's configured topic)")
	cmd.Flags().StringVar(&pf.correlationID, "correlation-id", "", "Correlation id stamped on every event")
	cmd.Flags().IntVar(&pf.concurrency, "concurrency", 8, "Events published in parallel")
	cmd.Flags().DurationVar(&pf.timeout, "timeout", 2*time.Minute, "Overall publish timeout")

	_ = cmd.MarkFlagRequired("type")
	cmd.MarkFlagsMutuallyExclusive("data", "file")
	cmd.MarkFlagsOneRequired("data", "file")

	return cmd
}

func runPublish(cmd *cobra.Command, flags *globalFlags, pf *publishFlags) error {
	t, err := events.ParseEventType(pf.eventType)
	if err != nil {
		return err
	}
	domain := t.Domain()
	if pf.domain != "" {
		domain = events.Domain(pf.domain)
		if !domain.IsValid() {
			return fmt.Errorf("unknown domain %q", pf.domain)
		}
	}
	if pf.concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", pf.concurrency)
	}

	payloads, err := readPayloads(cmd.InOrStdin(), pf)
	if err != nil {
		return err
	}

	var (
		publisher publish.Publisher
		kafkaConf kafkaconfig.Config
		app       appconfig.AppConfig
	)
	fxApp := fx.New(
		coreModule(flags),
		messaging.NewMessagingModule(),
		fx.Populate(&publisher, &kafkaConf, &app),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, pf.timeout)
	defer cancel()

	if err := fxApp.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fxApp.StopTimeout())
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()

	var opts []events.Option
	if pf.correlationID != "" {
		opts = append(opts, events.WithCorrelationID(pf.correlationID))
	}
	factory := events.NewFactory(app.ServiceName)
	envs := make([]*events.Envelope, 0, len(payloads))
	for i, raw := range payloads {
		env, err := buildEvent(factory, t, domain, raw, opts...)
		if err != nil {
			return fmt.Errorf("payload %d: %w", i+1, err)
		}
		envs = append(envs, env)
	}

	topic := pf.topic
	if topic == "" {
		topic = kafkaConf.Topic(domain)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pf.concurrency)
	for _, env := range envs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !publisher.Publish(gctx, topic, env) {
				failed.Add(1)
				fmt.Fprintf(cmd.ErrOrStderr(), "not delivered: %s\n", env.EventID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("publish interrupted: %w", err)
	}

	n := failed.Load()
	fmt.Fprintf(cmd.OutOrStdout(), "published %d/%d %s events to %s\n", int64(len(envs))-n, len(envs), t, topic)
	if n > 0 {
		return fmt.Errorf("%d events not delivered", n)
	}
	return nil
}

func readPayloads(stdin io.Reader, pf *publishFlags) ([][]byte, error) {
	if pf.data != "" {
		return [][]byte{[]byte(pf.data)}, nil
	}

	r := stdin
	if pf.file != "-" {
		f, err := os.Open(pf.file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var payloads [][]byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxPayloadLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		payloads = append(payloads, bytes.Clone(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read payloads: %w", err)
	}
	if len(payloads) == 0 {
		return nil, errors.New("no payloads to publish")
	}
	return payloads, nil
}

// buildEvent decodes raw into the payload type of domain and builds an
// envelope of type t around it.
func buildEvent(f *events.Factory, t events.EventType, domain events.Domain, raw []byte, opts ...events.Option) (*events.Envelope, error) {
	switch domain {
	case events.DomainNotification:
		return newEvent(raw, t, f.NewNotificationEvent, opts)
	case events.DomainAudit:
		return newEvent(raw, t, f.NewAuditEvent, opts)
	case events.DomainUser:
		return newEvent(raw, t, f.NewUserEvent, opts)
	case events.DomainEmployee:
		return newEvent(raw, t, f.NewEmployeeEvent, opts)
	case events.DomainLeave:
		return newEvent(raw, t, f.NewLeaveEvent, opts)
	case events.DomainAttendance:
		return newEvent(raw, t, f.NewAttendanceEvent, opts)
	case events.DomainCompliance:
		return newEvent(raw, t, f.NewComplianceEvent, opts)
	}
	return nil, fmt.Errorf("unknown domain %q", domain)
}

func newEvent[T any](raw []byte, t events.EventType, build func(events.EventType, T, ...events.Option) (*events.Envelope, error), opts []events.Option) (*events.Envelope, error) {
	var data T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return build(t, data, opts...)
}
