package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration resolved from environment variables,
// with defaults suitable for local development.
type Config struct {
	Debug bool

	Port          string
	MongoURI      string
	MongoDatabase string

	ResendAPIKey string
	FromEmail    string

	VAPIDPublicKey string

	TTSURL   string
	TTSVoice string

	GradesAPIURL   string
	GradesAPIToken string

	JWTKey string

	HistoryMax int

	QueueSweepInterval   time.Duration
	DailyDigestInterval  time.Duration
	WeeklyDigestInterval time.Duration
	MissingGradeInterval time.Duration
	CompactionInterval   time.Duration
	QueueRetention       time.Duration
}

// New builds the Config. Environment variables override defaults
// (MONGO_URI, RESEND_API_KEY, ...); Loadenv should run first so a
// local .env file is picked up.
func New() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("port", "8080")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "school_notify")
	v.SetDefault("resend_api_key", "")
	v.SetDefault("from_email", "noreply@localhost")
	v.SetDefault("vapid_public_key", "")
	v.SetDefault("tts_url", "")
	v.SetDefault("tts_voice", "id-ID-standard")
	v.SetDefault("grades_api_url", "")
	v.SetDefault("grades_api_token", "")
	v.SetDefault("jwt_key", "")
	v.SetDefault("history_max", 50)
	v.SetDefault("queue_sweep_interval", time.Minute)
	v.SetDefault("daily_digest_interval", 24*time.Hour)
	v.SetDefault("weekly_digest_interval", 7*24*time.Hour)
	v.SetDefault("missing_grade_interval", 24*time.Hour)
	v.SetDefault("compaction_interval", 24*time.Hour)
	v.SetDefault("queue_retention", 30*24*time.Hour)
	v.AutomaticEnv()

	return &Config{
		Debug:                v.GetBool("debug"),
		Port:                 v.GetString("port"),
		MongoURI:             v.GetString("mongo_uri"),
		MongoDatabase:        v.GetString("mongo_database"),
		ResendAPIKey:         v.GetString("resend_api_key"),
		FromEmail:            v.GetString("from_email"),
		VAPIDPublicKey:       v.GetString("vapid_public_key"),
		TTSURL:               v.GetString("tts_url"),
		TTSVoice:             v.GetString("tts_voice"),
		GradesAPIURL:         v.GetString("grades_api_url"),
		GradesAPIToken:       v.GetString("grades_api_token"),
		JWTKey:               v.GetString("jwt_key"),
		HistoryMax:           v.GetInt("history_max"),
		QueueSweepInterval:   v.GetDuration("queue_sweep_interval"),
		DailyDigestInterval:  v.GetDuration("daily_digest_interval"),
		WeeklyDigestInterval: v.GetDuration("weekly_digest_interval"),
		MissingGradeInterval: v.GetDuration("missing_grade_interval"),
		CompactionInterval:   v.GetDuration("compaction_interval"),
		QueueRetention:       v.GetDuration("queue_retention"),
	}
}
