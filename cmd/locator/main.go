// locator replies to incoming calls with an SMS giving the location of the
// modem, as reported by the network.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/warthog618/goatloc"
	"github.com/warthog618/goatloc/internal/at"
	"github.com/warthog618/goatloc/internal/clock"
	"github.com/warthog618/goatloc/internal/modem"
	"github.com/warthog618/goatloc/internal/power"
	"github.com/warthog618/goatloc/internal/tracker"
	"github.com/warthog618/goatloc/internal/wake"
)

func main() {
	cfgPath := flag.String("c", "conf.ini", "config file")
	verbose := flag.Bool("v", false, "log debug and modem traffic")
	flag.Parse()

	cfg, err := goatloc.GetConfig(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}
	if *verbose {
		cfg.Log.Level = logrus.DebugLevel
		cfg.Device.Trace = true
	}
	logger := newLogger(cfg.Log)
	logger.WithFields(logrus.Fields{
		"port": cfg.Device.Port,
		"baud": cfg.Device.Baud,
	}).Info("starting")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := tracker.NewStatus()
	if cfg.Server.Port != "" {
		go func() {
			err := InitServer(status, cfg.Server.Host, cfg.Server.Port, logger.WithField("component", "server"))
			logger.WithError(err).Error("status server stopped")
		}()
	}

	options := []modem.Option{modem.WithLogger(logger.WithField("component", "modem"))}
	if cfg.Device.Trace {
		options = append(options, modem.WithTrace(traceLogger(logger)))
	}
	m := modem.New(cfg.Device.Port, cfg.Device.Baud, options...)
	err = m.Run(ctx, func(ctx context.Context, rw io.ReadWriter) error {
		return runTracker(ctx, rw, cfg, status, logger)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("modem supervisor failed")
	}
	logger.Info("exiting")
}

// runTracker runs a tracker session over an open modem connection.
func runTracker(ctx context.Context, rw io.ReadWriter, cfg *goatloc.Config, status *tracker.Status, logger *logrus.Logger) error {
	s := at.NewSession(rw,
		at.WithLogger(logger.WithField("component", "at")),
		at.WithCommandTimeout(cfg.Device.CommandTimeout),
		at.WithSendTimeout(cfg.Device.SendTimeout))
	defer s.Close()

	plog := logger.WithField("component", "power")
	pwr := power.New(s, wakeSource(cfg, s, plog), cfg.PowerConfig(), power.WithLogger(plog))
	t := tracker.New(s, pwr, cfg.Tracker,
		tracker.WithLogger(logger.WithField("component", "tracker")),
		tracker.WithStatus(status))
	err := t.Run(ctx)
	logger.WithError(err).WithField("state", status.Snapshot().State).Warn("tracker stopped")
	return err
}

func wakeSource(cfg *goatloc.Config, s *at.Session, log logrus.FieldLogger) wake.Source {
	w := cfg.Wake
	switch {
	case cfg.Tracker.WakeWired && w.Chip != "":
		log.WithFields(logrus.Fields{
			"chip": w.Chip,
			"line": w.Line,
			"edge": w.Edge,
		}).Info("wake on gpio")
		options := []wake.GPIOOption{wake.WithEdge(w.Edge)}
		if w.ActiveLow {
			options = append(options, wake.WithActiveLow())
		}
		return wake.NewGPIO(w.Chip, w.Line, options...)
	case w.Poll > 0:
		log.WithField("interval", w.Poll).Info("wake on poll")
		return wake.NewPoll(clock.Real{}, w.Poll)
	default:
		log.Info("wake on modem output")
		return wake.NewInput(s)
	}
}
