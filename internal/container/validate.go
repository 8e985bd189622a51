package container

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
)

// ImageExists reports whether the image exists in the local daemon. Every
// failure mode, including an unreachable daemon, collapses to false: the
// check exists to produce an early, clear error before the more expensive
// create call, so over-reporting "invalid" is the safe direction.
func ImageExists(ctx context.Context, cli Client, image string) bool {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err != nil {
		if !client.IsErrNotFound(err) {
			log.Warn("unable to query image", "image", image, "error", err)
		}
		return false
	}
	return true
}

// NetworkExists reports whether a network with the given name or ID exists.
// Failures collapse to false, as with ImageExists.
func NetworkExists(ctx context.Context, cli Client, name string) bool {
	networks, err := cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		log.Warn("unable to list networks", "network", name, "error", err)
		return false
	}
	for _, n := range networks {
		if n.Name == name || n.ID == name {
			return true
		}
	}
	return false
}
