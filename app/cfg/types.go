package cfg

type Cfg struct {
	// Storage configuration
	DBPath        string
	RetentionDays int

	// Discovery configuration
	SourcesDir        string
	MaxNewPerRun      int
	MaxAgeDays        int
	FuzzyMinLength    int
	RunTimeout        int
	WorkerCount       int
	SchedulerInterval int

	// Navigation configuration
	UserAgent         string
	MaxRetries        int
	BackoffBase       int
	SoftBlockCooldown int
	DisableRendering  bool
	ChromeEndpoint    string

	// Vision collaborator
	VisionEndpoint string
	VisionAPIKey   string

	// Delivery
	DeliveryDir string
	WebhookURL  string

	// HTTP API (serve mode)
	Port         string
	APIAccessKey string

	// Run modes
	Serve        bool
	Test         bool
	MetadataOnly bool
	Purge        bool
	Source       string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
