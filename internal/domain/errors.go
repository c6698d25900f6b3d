package domain

import "errors"

var (
	ErrStarNotFound        = errors.New("star system not found")
	ErrCreatorNotFound     = errors.New("creator not found")
	ErrUnauthenticated     = errors.New("creator not logged in")
	ErrInvalidCreatorName  = errors.New("creator name is required")
	ErrEmptyPrompt         = errors.New("a prompt is required to forge a vision from the cosmos")
	ErrInvalidAspectRatio  = errors.New("unsupported aspect ratio")
	ErrInvalidMedia        = errors.New("invalid media data")
	ErrNotAnImage          = errors.New("only symbolic images can be decoded at this time")
	ErrMissingSource       = errors.New("please provide a source image")
	ErrInvalidAPIKey       = errors.New("your API key is invalid")
	ErrEmptyNebula         = errors.New("the Celestial Forge returned an empty nebula, the vision could not be formed")
	ErrNoNewReality        = errors.New("the Vision Weaver could not manifest a new reality from your request")
	ErrTransmissionLost    = errors.New("a veil of static obscures the message, the transmission could not be received")
	ErrJobNotFound         = errors.New("video job not found")
	ErrJobNotReady         = errors.New("video is not ready")
	ErrMediaNotFound       = errors.New("media not found")
	ErrStorageAccessDenied = errors.New("storage bucket access denied, configure policies for public read access")
	ErrCloudDisabled       = errors.New("cloud storage is not configured")
	ErrPaymentsDisabled    = errors.New("payments are not configured")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidOrigin       = errors.New("invalid return origin")
	ErrShuttingDown        = errors.New("the animator is shutting down")
	ErrRateLimited         = errors.New("too many requests")
)
