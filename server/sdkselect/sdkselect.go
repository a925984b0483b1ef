// Package sdkselect picks the Apple SDK path an action's compiler
// invocation should see, based on the action's APPLE_SDK_PLATFORM
// environment entry.
package sdkselect

import (
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

const (
	xcodeDeveloperDir = "/Applications/Xcode.app/Contents/Developer"

	platformIPhoneSimulator = "iPhoneSimulator"
	platformMacOSX          = "MacOSX"
)

// sdkPath returns the Xcode-default SDK root for an Apple platform name,
// e.g. "MacOSX" -> ".../Platforms/MacOSX.platform/Developer/SDKs/MacOSX.sdk".
// These paths are hard-coded; a future revision could shell out to
// `xcrun --sdk <p> --show-sdk-path` instead without changing the Select
// signature.
func sdkPath(platform string) string {
	return xcodeDeveloperDir + "/Platforms/" + platform + ".platform/Developer/SDKs/" + platform + ".sdk"
}

// Select reads env["APPLE_SDK_PLATFORM"] and returns the SDK path to
// substitute for __BAZEL_XCODE_SDKROOT__. Exactly "iPhoneSimulator"
// selects the iPhone Simulator SDK; anything else (including "MacOSX" and
// other simulator platforms) selects the macOS SDK. A missing environment entry is a CustomError.
func Select(env map[string]string) (string, error) {
	platform, ok := env["APPLE_SDK_PLATFORM"]
	if !ok || platform == "" {
		return "", status.CustomErrorf("action is missing APPLE_SDK_PLATFORM environment entry")
	}
	if platform == platformIPhoneSimulator {
		return sdkPath(platformIPhoneSimulator), nil
	}
	return sdkPath(platformMacOSX), nil
}
