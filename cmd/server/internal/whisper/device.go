package whisper

import (
	"os"
	"os/exec"
)

const (
	DeviceAuto = "auto"
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// overridden in tests
var (
	lookPath = exec.LookPath
	statFile = os.Stat
)

// DetectDevice resolves "auto" to "cuda" when an NVIDIA driver is visible on
// this host and to "cpu" otherwise. Explicit choices are returned unchanged.
func DetectDevice(requested string) string {
	if requested != "" && requested != DeviceAuto {
		return requested
	}
	if _, err := lookPath("nvidia-smi"); err == nil {
		return DeviceCUDA
	}
	if _, err := statFile("/dev/nvidia0"); err == nil {
		return DeviceCUDA
	}
	return DeviceCPU
}
