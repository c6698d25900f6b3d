package config

import "time"

const (
	// Session cookie, same name the web client used for session storage
	SessionCookie   = "cosmic-creator-user"
	SessionLifetime = 30 * 24 * time.Hour

	// Local storage key prefix for linked star images
	LinkStoragePrefix = "cosmic-creator-images-"

	// Video generation polling
	VideoPollInterval    = 10 * time.Second
	VideoPollMaxAttempts = 60

	// Payment status polling
	PaymentPollInterval    = 2 * time.Second
	PaymentPollMaxAttempts = 10

	// Vendor request timeouts
	RequestTimeout      = 90 * time.Second
	VideoFetchTimeout   = 5 * time.Minute
	SourceImageTimeout  = 30 * time.Second
	MaxUploadBytes      = 20 << 20
	MaxVideoUploadBytes = 200 << 20

	// Gallery
	GalleryImageLimit     = 20
	GalleryVideoLimit     = 10
	GalleryCacheDuration  = 1 * time.Minute
	GalleryUserFolders    = 1000
	GalleryStarFolders    = 100
	GalleryImagesPerStar  = 10
	GalleryVideosPerStar  = 5
	CloudStarFolderLimit  = 100
	StaleJobRetention     = 1 * time.Hour
	StaleJobCleanupPeriod = 10 * time.Minute

	// Reflective chat messages kept per creator
	MaxTranscriptMessages = 200

	// Rate limit window cleanup
	RateLimitCleanupPeriod = 5 * time.Minute

	// Models
	ModelReflection     = "gemini-2.5-pro"
	ModelOracle         = "gemini-2.5-flash"
	ModelOracleDetailed = "gemini-2.5-pro"
	ModelTransmission   = "gemini-2.5-flash"
	ModelImageEdit      = "gemini-2.5-flash-image"
	ModelImagen         = "imagen-4.0-generate-001"
	ModelVeo            = "veo-3.1-fast-generate-preview"

	VideoResolution     = "720p"
	DefaultImageAspect  = "1:1"
	DefaultVideoAspect  = "16:9"
	ForgeOutputMIMEType = "image/jpeg"
)

// ImageAspectRatios accepted by the forge chamber.
var ImageAspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// VideoAspectRatios accepted by the animator chamber.
var VideoAspectRatios = []string{"16:9", "9:16"}
