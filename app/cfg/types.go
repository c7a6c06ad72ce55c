package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath        string
	SiteConfig    string
	StateBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Application configuration
	Port                string
	BaseUrl             string
	APIAccessKey        string
	APIRateLimit        int
	GenerationSchedule  string
	IncrementalSchedule string
	StaleLookback       time.Duration

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
