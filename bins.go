/*
Copyright © 2024 the synthhill authors.
This file is part of synthhill.

synthhill is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

synthhill is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with synthhill.  If not, see <http://www.gnu.org/licenses/>.
*/

package synthhill

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
)

// Bins holds the column boundaries of a hillslope. Column n spans
// heights [Height[n], Height[n+1]] and distances from the channel
// [Length[n], Length[n+1]].
type Bins struct {
	Height []float64 // height bin edges [m]
	Length []float64 // length bin edges [m]
}

// NewBins creates height bins of the specified fractional sizes above the
// lowland threshold height thresh, and the matching length bins from the
// inverse of the hillslope profile p.
func NewBins(policy ColumnPolicy, thresh float64, p Profile) (*Bins, error) {
	fractions, err := policy.Fractions()
	if err != nil {
		return nil, err
	}
	n := int(policy) + 1
	b := &Bins{
		Height: make([]float64, n),
		Length: make([]float64, n),
	}
	b.Height[1] = thresh
	for i, f := range fractions {
		b.Height[i+2] = thresh + (p.Height-thresh)*f
	}
	if p.Height > 0 {
		for i, h := range b.Height {
			b.Length[i] = p.Distance(h)
		}
	}
	return b, nil
}

// Columns returns the number of columns described by b.
func (b *Bins) Columns() int { return len(b.Height) - 1 }

// binRequest holds everything bins depend on.
type binRequest struct {
	policy                           ColumnPolicy
	thresh, length, exponent, height float64
}

func (r binRequest) key() string {
	return fmt.Sprintf("%d_%v_%v_%v_%v", int(r.policy), r.thresh, r.length, r.exponent, r.height)
}

var (
	// binCache memoizes bins. Many cells share the same clipped hill
	// height, so most requests are repeats.
	binCache *requestcache.Cache
	// binCacheInit is used to initialize binCache.
	binCacheInit sync.Once
)

// cachedBins returns the bins for request r, creating them if they
// are not already in the cache.
func cachedBins(ctx context.Context, r binRequest) (*Bins, error) {
	binCacheInit.Do(func() {
		binCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(binRequest)
			return NewBins(r.policy, r.thresh, Profile{Length: r.length, Height: r.height, Exponent: r.exponent})
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(1000))
	})
	result, err := binCache.NewRequest(ctx, r, r.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("synthhill: creating bins for hill height %g: %w", r.height, err)
	}
	return result.(*Bins), nil
}
