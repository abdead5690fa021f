package logfields

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    interface{}
	}{
		{"Package", KeyPackage, "numpy", Package("numpy")},
		{"Migrator", KeyMigrator, "bump-numpy", Migrator("bump-numpy")},
		{"MigratorKey", KeyMigratorKey, "mig-1", MigratorKey("mig-1")},
		{"State", KeyState, "in_pr", State("in_pr")},
		{"Stage", KeyStage, "probe", Stage("probe")},
		{"CycleID", KeyCycleID, "cyc1", CycleID("cyc1")},
		{"Fingerprint", KeyFingerprint, "abc123", Fingerprint("abc123")},
		{"PRURL", KeyPRURL, "https://example/pr/1", PRURL("https://example/pr/1")},
		{"Backend", KeyBackend, "file", Backend("file")},
		{"Key", KeyKey, "packages/numpy.json", Key("packages/numpy.json")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"File", KeyFile, "file.md", File("file.md")},
		{"Worker", KeyWorker, "w1", Worker("w1")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"UserAgent", KeyUserAgent, "ua", UserAgent("ua")},
		{"RemoteAddr", KeyRemoteAddr, "1.2.3.4", RemoteAddr("1.2.3.4")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"ForgeType", KeyForgeType, "github", ForgeType("github")},
		{"Name", KeyName, "n", Name("n")},
		{"URL", KeyURL, "http://example", URL("http://example")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.attr.(slog.Attr)
			// Key drift would break log ingestion schemas.
			assert.Equal(t, tc.attrKey, a.Key)
			assert.Equal(t, tc.attrVal, a.Value.String())
		})
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	assert.Equal(t, KeyPRNumber, PRNumber(5).Key)
	assert.Equal(t, KeyShard, Shard(3).Key)
	assert.Equal(t, KeyNodeCount, NodeCount(100).Key)
	assert.Equal(t, KeyCycleCount, CycleCount(2).Key)
	assert.Equal(t, KeyRateRemain, RateRemaining(42).Key)
	assert.Equal(t, KeyStatus, Status(200).Key)
	assert.Equal(t, KeyResponseSz, ResponseSize(42).Key)
	assert.Equal(t, KeyDurationMS, DurationMS(12.5).Key)
	assert.Equal(t, KeyContentLen, ContentLength(1234).Key)
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	assert.Equal(t, KeyError, attr.Key)
	assert.Empty(t, attr.Value.String())

	attr = Error(errTest{})
	assert.Equal(t, "err-test", attr.Value.String())
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
