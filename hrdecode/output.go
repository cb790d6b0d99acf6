package main

import (
	"context"
	"errors"
	"fmt"

	decoder "github.com/psi46/hrdecoder_go/pkg"
	"github.com/psi46/hrdecoder_go/pkg/writer"
)

// outputs bundles the optional run log and HDF5 file of a command.
type outputs struct {
	runLog *decoder.RunLog
	writer *writer.Writer
}

func openOutputs() (*outputs, error) {
	out := &outputs{}
	if !configuration.NoDB {
		runLog, err := openRunLog()
		if err != nil {
			return nil, err
		}
		out.runLog = runLog
		if VerbosityLevel > 0 {
			logger.Info(fmt.Sprintf("Run ID: %s", runLog.RunID), "main")
		}
	}
	if configuration.WriteData && configuration.FileOut != "" {
		w, err := writer.NewWriter(configuration.FileOut, configuration.CompressionLevel, logger)
		if err != nil {
			return nil, errors.Join(err, out.Close())
		}
		out.writer = w
	}
	return out, nil
}

func openRunLog() (*decoder.RunLog, error) {
	if configuration.DBDriver == "mysql" {
		db, err := decoder.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			return nil, fmt.Errorf("Error connection to database: %w", err)
		}
		runLog, err := decoder.NewRunLog(db)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}
		return runLog, nil
	}
	return decoder.OpenRunLog(configuration.DBDriver, configuration.DBName)
}

func (o *outputs) recordPass(ctx context.Context, test string, pass int, summary decoder.PassSummary) {
	if o.runLog != nil {
		if err := o.runLog.RecordPass(ctx, test, pass, summary); err != nil {
			logger.Error(err.Error())
		}
	}
	if o.writer != nil {
		if err := o.writer.WritePassSummary(test, pass, summary); err != nil {
			logger.Error(err.Error())
		}
	}
}

func (o *outputs) recordMeasurement(ctx context.Context, name string, m decoder.Measurement, unit string) {
	logger.Info(m.Format(name, unit), "result")
	if o.runLog == nil {
		return
	}
	if err := o.runLog.RecordMeasurement(ctx, name, m, unit); err != nil {
		logger.Error(err.Error())
	}
}

// write runs fn on the HDF5 writer if one is open.
func (o *outputs) write(fn func(w *writer.Writer) error) {
	if o.writer == nil {
		return
	}
	if err := fn(o.writer); err != nil {
		logger.Error(fmt.Sprintf("error writing %s: %v", o.writer.Filename, err))
	}
}

func (o *outputs) Close() error {
	var errs []error
	if o.writer != nil {
		errs = append(errs, o.writer.Close())
	}
	if o.runLog != nil {
		errs = append(errs, o.runLog.Close())
	}
	return errors.Join(errs...)
}
