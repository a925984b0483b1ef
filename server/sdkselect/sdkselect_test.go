package sdkselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

func TestSelect_Simulator(t *testing.T) {
	sdk, err := Select(map[string]string{"APPLE_SDK_PLATFORM": "iPhoneSimulator"})
	require.NoError(t, err)
	assert.Contains(t, sdk, "iPhoneSimulator.platform")
	assert.Contains(t, sdk, "iPhoneSimulator.sdk")
}

func TestSelect_MacOSX(t *testing.T) {
	sdk, err := Select(map[string]string{"APPLE_SDK_PLATFORM": "MacOSX"})
	require.NoError(t, err)
	assert.Contains(t, sdk, "MacOSX.platform")
}

func TestSelect_UnrecognizedFallsBackToMacOSX(t *testing.T) {
	sdk, err := Select(map[string]string{"APPLE_SDK_PLATFORM": "AppleTVOS"})
	require.NoError(t, err)
	assert.Contains(t, sdk, "MacOSX.sdk")
}

func TestSelect_MissingEnv(t *testing.T) {
	_, err := Select(map[string]string{})
	require.Error(t, err)
	assert.True(t, status.IsCustomError(err))
}
