package main

import (
	"encoding/json"
	"fmt"
	"os"

	decoder "github.com/psi46/hrdecoder_go/pkg"
)

func LoadConfiguration(filename string) (decoder.Configuration, error) {
	var config decoder.Configuration

	// Set default values
	config.NRoc = 16
	config.AnalogReadout = false
	config.InvertedRowAddress = false
	config.Verbosity = 0
	config.FileOut = "hrdecode.h5"
	config.WriteData = true
	config.CompressionLevel = 4
	config.CapacityBytes = 1 << 30
	config.Triggers = 10
	config.AcquisitionTime = 10
	config.Repetitions = 1
	config.TriggerPeriod = decoder.DEFAULT_TRIGGER_PERIOD
	config.ClockStretch = 1
	config.TimeBinSeconds = 0
	config.NoDB = false
	config.DBDriver = "sqlite"
	config.Host = "localhost"
	config.User = "psi46"
	config.Passwd = ""
	config.DBName = "hrdecode.db"

	if filename == "" {
		return config, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config decoder.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Number of ROCs: %d", config.NRoc), "config")
	logger.Info(fmt.Sprintf("Analog readout: %t", config.AnalogReadout), "config")
	logger.Info(fmt.Sprintf("Inverted row address: %t", config.InvertedRowAddress), "config")
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("Files in: %v", config.FilesIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Buffer capacity: %d bytes", config.CapacityBytes), "config")
	logger.Info(fmt.Sprintf("Triggers per pixel: %d", config.Triggers), "config")
	logger.Info(fmt.Sprintf("Calibration dir: %s", config.CalibrationDir), "config")
	logger.Info(fmt.Sprintf("Acquisition time: %g s", config.AcquisitionTime), "config")
	logger.Info(fmt.Sprintf("Repetitions: %d", config.Repetitions), "config")
	logger.Info(fmt.Sprintf("Trigger period: %d clocks", config.TriggerPeriod), "config")
	logger.Info(fmt.Sprintf("Clock stretch: %d", config.ClockStretch), "config")
	logger.Info(fmt.Sprintf("Time bin: %g s", config.TimeBinSeconds), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
