package negotiate

import (
	"fmt"

	"github.com/beamwallet/negotiator/pkg/group"
)

func encodePoints(points []*group.Point) [][]byte {
	out := make([][]byte, len(points))
	for i, p := range points {
		out[i] = p.Bytes()
	}
	return out
}

func decodePoints(raw [][]byte) ([]*group.Point, error) {
	out := make([]*group.Point, len(raw))
	for i, b := range raw {
		p, err := group.PointFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("negotiate: decode point %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
