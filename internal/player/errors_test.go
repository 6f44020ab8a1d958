package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   EngineError
		want  Bucket
		audio bool
	}{
		{
			name: "behind live window",
			err:  EngineError{Code: CodeBehindLiveWindow},
			want: BucketLiveWindowExpired,
		},
		{
			name: "container malformed without cause",
			err:  EngineError{Code: CodeParsingContainerMalformed},
			want: BucketStreamCorrupted,
		},
		{
			name: "container unsupported with unrecognized format cause",
			err:  EngineError{Code: CodeParsingContainerUnsupported, Cause: "UnrecognizedInputFormatException: none of the available extractors could read the stream"},
			want: BucketFormatUnsupported,
		},
		{
			name: "manifest malformed with truncated cause",
			err:  EngineError{Code: CodeParsingManifestMalformed, Cause: "truncated box at offset 1024"},
			want: BucketStreamCorrupted,
		},
		{
			name: "network connection failed",
			err:  EngineError{Code: CodeIONetworkConnectionFailed},
			want: BucketNetworkFailure,
		},
		{
			name: "bad http status",
			err:  EngineError{Code: CodeIOBadHTTPStatus, Cause: "response code 403"},
			want: BucketNetworkFailure,
		},
		{
			name: "io error with corruption cause re-buckets",
			err:  EngineError{Code: CodeIOUnspecified, Cause: "source error: invalid NAL unit"},
			want: BucketStreamCorrupted,
		},
		{
			name: "io error with unrecognized format cause re-buckets",
			err:  EngineError{Code: CodeIOUnspecified, Cause: "unrecognized input format"},
			want: BucketFormatUnsupported,
		},
		{
			name: "unspecified code without cause",
			err:  EngineError{Code: CodeUnspecified},
			want: BucketNetworkFailure,
		},
		{
			name:  "audio track init failure",
			err:   EngineError{Code: CodeAudioTrackInitFailed},
			want:  BucketDecoderFailure,
			audio: true,
		},
		{
			name:  "audio track write failure",
			err:   EngineError{Code: CodeAudioTrackWriteFailed},
			want:  BucketDecoderFailure,
			audio: true,
		},
		{
			name: "video decoder init failure",
			err:  EngineError{Code: CodeDecoderInitFailed, Cause: "Decoder init failed: c2.android.avc.decoder"},
			want: BucketDecoderFailure,
		},
		{
			name:  "decoder failure with audio cause",
			err:   EngineError{Code: CodeDecodingFailed, Cause: "audio decoder failed"},
			want:  BucketDecoderFailure,
			audio: true,
		},
		{
			name: "drm license acquisition",
			err:  EngineError{Code: CodeDrmLicenseAcquisitionFailed},
			want: BucketDrmFailure,
		},
		{
			name: "drm device revoked",
			err:  EngineError{Code: CodeDrmDeviceRevoked},
			want: BucketDrmFailure,
		},
		{
			name: "unknown code",
			err:  EngineError{Code: ErrorCode(9999)},
			want: BucketUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Bucket)
			assert.Equal(t, tt.audio, got.AudioTrack)
		})
	}
}

func TestBucketString(t *testing.T) {
	assert.Equal(t, "live_window_expired", BucketLiveWindowExpired.String())
	assert.Equal(t, "drm_failure", BucketDrmFailure.String())
	assert.Equal(t, "unclassified", BucketUnclassified.String())
}
