package envinfo

import (
	"context"
	"strings"
	"time"
)

// DockerSummary lists local containers and images.
type DockerSummary struct {
	Containers []string
	Images     []string
}

const dockerTimeout = 5 * time.Second

func (p *Provider) dockerSummary(ctx context.Context) *DockerSummary {
	ctx, cancel := context.WithTimeout(ctx, dockerTimeout)
	defer cancel()

	containers, err := p.run(ctx, "docker", "ps", "-a", "--format", "{{.ID}} {{.Image}} {{.Names}} {{.Status}}")
	if err != nil {
		return nil
	}
	images, err := p.run(ctx, "docker", "images", "--format", "{{.Repository}}:{{.Tag}} {{.ID}}")
	if err != nil {
		return nil
	}
	return &DockerSummary{
		Containers: nonEmptyLines(string(containers)),
		Images:     nonEmptyLines(string(images)),
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
