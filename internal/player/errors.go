package player

import "strings"

// ErrorCode is the raw error-code enum reported by the media engine.
type ErrorCode int

const (
	CodeUnspecified ErrorCode = iota
	CodeBehindLiveWindow
	CodeParsingContainerMalformed
	CodeParsingManifestMalformed
	CodeParsingContainerUnsupported
	CodeParsingManifestUnsupported
	CodeIONetworkConnectionFailed
	CodeIONetworkConnectionTimeout
	CodeIOBadHTTPStatus
	CodeIOFileNotFound
	CodeIOUnspecified
	CodeDecoderInitFailed
	CodeDecodingFailed
	CodeDecoderQueryFailed
	CodeAudioTrackInitFailed
	CodeAudioTrackWriteFailed
	CodeDrmUnspecified
	CodeDrmLicenseAcquisitionFailed
	CodeDrmDeviceRevoked
	CodeDrmContentError
)

// EngineError is a raw error signal from the media engine: a code plus
// optional free-form cause text.
type EngineError struct {
	Code  ErrorCode `json:"code"`
	Cause string    `json:"cause,omitempty"`
}

// Bucket is the classified error category that recovery dispatches on.
type Bucket int

const (
	BucketUnclassified Bucket = iota
	BucketLiveWindowExpired
	BucketFormatUnsupported
	BucketStreamCorrupted
	BucketNetworkFailure
	BucketDecoderFailure
	BucketDrmFailure
)

func (b Bucket) String() string {
	switch b {
	case BucketLiveWindowExpired:
		return "live_window_expired"
	case BucketFormatUnsupported:
		return "format_unsupported"
	case BucketStreamCorrupted:
		return "stream_corrupted"
	case BucketNetworkFailure:
		return "network_failure"
	case BucketDecoderFailure:
		return "decoder_failure"
	case BucketDrmFailure:
		return "drm_failure"
	default:
		return "unclassified"
	}
}

// Classification is the result of classifying a raw engine error.
// AudioTrack marks decoder failures specific to the audio pipeline, which
// are eligible for alternate-audio substitution instead of shutdown.
type Classification struct {
	Bucket     Bucket
	AudioTrack bool
}

var unrecognizedFormatSignatures = []string{
	"unrecognizedinputformat",
	"unrecognized input format",
	"none of the available extractors",
}

var corruptionSignatures = []string{
	"source error",
	"malformed",
	"invalid nal",
	"unexpected end of stream",
	"truncated",
	"invalid atom",
}

func causeMatches(cause string, signatures []string) bool {
	if cause == "" {
		return false
	}
	lower := strings.ToLower(cause)
	for _, sig := range signatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Classify maps a raw engine error to its recovery bucket. It is a pure
// function of the code and cause text; recovery actions live in Recovery.
func Classify(err EngineError) Classification {
	switch err.Code {
	case CodeBehindLiveWindow:
		return Classification{Bucket: BucketLiveWindowExpired}

	case CodeParsingContainerMalformed, CodeParsingManifestMalformed,
		CodeParsingContainerUnsupported, CodeParsingManifestUnsupported:
		if causeMatches(err.Cause, unrecognizedFormatSignatures) {
			return Classification{Bucket: BucketFormatUnsupported}
		}
		return Classification{Bucket: BucketStreamCorrupted}

	case CodeIONetworkConnectionFailed, CodeIONetworkConnectionTimeout,
		CodeIOBadHTTPStatus, CodeIOFileNotFound, CodeIOUnspecified,
		CodeUnspecified:
		// Transport failures sometimes carry corruption causes; those take
		// the counted mark-and-downgrade path, not the plain reload path.
		if causeMatches(err.Cause, unrecognizedFormatSignatures) {
			return Classification{Bucket: BucketFormatUnsupported}
		}
		if causeMatches(err.Cause, corruptionSignatures) {
			return Classification{Bucket: BucketStreamCorrupted}
		}
		return Classification{Bucket: BucketNetworkFailure}

	case CodeAudioTrackInitFailed, CodeAudioTrackWriteFailed:
		return Classification{Bucket: BucketDecoderFailure, AudioTrack: true}

	case CodeDecoderInitFailed, CodeDecodingFailed, CodeDecoderQueryFailed:
		audio := causeMatches(err.Cause, []string{"audio"})
		return Classification{Bucket: BucketDecoderFailure, AudioTrack: audio}

	case CodeDrmUnspecified, CodeDrmLicenseAcquisitionFailed,
		CodeDrmDeviceRevoked, CodeDrmContentError:
		return Classification{Bucket: BucketDrmFailure}

	default:
		return Classification{Bucket: BucketUnclassified}
	}
}
