package compose

import (
	"strings"
	"testing"

	"camrig/internal/provision"
)

func TestUpArgs(t *testing.T) {
	t.Run("plain launch", func(t *testing.T) {
		args := upArgs("/opt/camrig/docker-compose.yml", provision.UpOptions{})
		want := "compose -f /opt/camrig/docker-compose.yml up -d"
		if got := strings.Join(args, " "); got != want {
			t.Fatalf("upArgs = %q, want %q", got, want)
		}
	})

	t.Run("clean restart launch", func(t *testing.T) {
		args := upArgs("/opt/camrig/docker-compose.yml", provision.UpOptions{Build: true, RemoveOrphans: true})
		want := "compose -f /opt/camrig/docker-compose.yml up -d --build --remove-orphans"
		if got := strings.Join(args, " "); got != want {
			t.Fatalf("upArgs = %q, want %q", got, want)
		}
	})
}

func TestDownArgs(t *testing.T) {
	args := downArgs("/opt/camrig/docker-compose.yml", true)
	want := "compose -f /opt/camrig/docker-compose.yml down --remove-orphans"
	if got := strings.Join(args, " "); got != want {
		t.Fatalf("downArgs = %q, want %q", got, want)
	}

	args = downArgs("/opt/camrig/docker-compose.yml", false)
	if got := strings.Join(args, " "); strings.Contains(got, "--remove-orphans") {
		t.Fatalf("downArgs = %q, orphan flag should be absent", got)
	}
}

func TestProjectName(t *testing.T) {
	cases := map[string]string{
		"/opt/camrig/docker-compose.yml":     "camrig",
		"/srv/Relay-Stack/compose.yaml":      "relay-stack",
		"/home/pi/My Cams!/docker-compose.yml": "mycams",
		"/x/_hidden/compose.yaml":            "hidden",
	}
	for path, want := range cases {
		if got := ProjectName(path); got != want {
			t.Fatalf("ProjectName(%q) = %q, want %q", path, got, want)
		}
	}
}
