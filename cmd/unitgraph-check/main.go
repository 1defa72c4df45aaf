package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/unitgraph/pkg/observability"
	"github.com/platinummonkey/unitgraph/pkg/seed"
)

// unitgraph-check validates a seed file offline: every include is applied in
// file order and every rejection is reported. It exits 1 when any include is
// rejected or the resulting graph does not audit clean.
func main() {
	file := flag.String("f", "unitgraph.yaml", "Seed file to check")
	format := flag.String("log-format", "text", "Log format (json or text)")
	flag.Parse()

	logger, err := observability.NewLogger("info", *format, os.Stderr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}

	f, err := seed.LoadFile(*file)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load seed file")
	}

	g, rejected, err := seed.Build(f)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build graph")
	}

	for _, r := range rejected {
		logger.WithFields(logrus.Fields{
			"from": r.Include.From.String(),
			"to":   r.Include.To.String(),
		}).Error(r.Err.Error())
	}
	violations := g.Audit()
	for _, v := range violations {
		logger.WithField("kind", v.Kind).Error(v.Error())
	}

	logger.WithFields(logrus.Fields{
		"units":    len(f.Units),
		"includes": len(f.Includes) - len(rejected),
		"rejected": len(rejected),
	}).Info("Seed checked")

	if len(rejected) > 0 || len(violations) > 0 {
		os.Exit(1)
	}
}
