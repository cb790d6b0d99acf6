package decoder

type Configuration struct {
	Geometry
	Verbosity        int      `json:"verbosity"`
	FileIn           string   `json:"file_in"`
	FilesIn          []string `json:"files_in"`
	FileOut          string   `json:"file_out"`
	WriteData        bool     `json:"write_data"`
	CompressionLevel int      `json:"compression_level"`
	CapacityBytes    int      `json:"capacity_bytes"`
	Triggers         int      `json:"triggers"`
	CalibrationDir   string   `json:"calibration_dir"`
	AcquisitionTime  float64  `json:"acquisition_time"`
	Repetitions      int      `json:"repetitions"`
	TriggerPeriod    int      `json:"trigger_period"`
	ClockStretch     int      `json:"clock_stretch"`
	TimeBinSeconds   float64  `json:"time_bin_seconds"`
	NoDB             bool     `json:"no_db"`
	DBDriver         string   `json:"db_driver"`
	Host             string   `json:"host"`
	User             string   `json:"user"`
	Passwd           string   `json:"pass"`
	DBName           string   `json:"dbname"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
