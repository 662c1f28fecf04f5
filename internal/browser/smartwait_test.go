// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForNetworkIdle_NoActivityReturnsImmediately(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	sess, err := reg.GetOrCreate(ctx, "s1", true, "", false)
	require.NoError(t, err)
	defer reg.Close(ctx, "s1")

	err = sess.WaitForNetworkIdle(ctx, 50*time.Millisecond, time.Second)
	assert.NoError(t, err)
}

func TestWaitForNetworkIdle_WaitsOutRecentActivity(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	sess, err := reg.GetOrCreate(ctx, "s1", true, "", false)
	require.NoError(t, err)
	defer reg.Close(ctx, "s1")

	sess.networkRequests.Append(InterceptedRequest{Timestamp: time.Now(), Method: "GET", URL: "https://x.test", Phase: "request"})

	err = sess.WaitForNetworkIdle(ctx, 80*time.Millisecond, 2*time.Second)
	assert.NoError(t, err)
}

func TestWaitForNetworkIdle_TimesOutIfNeverIdle(t *testing.T) {
	reg, drv := newTestRegistry(t)
	ctx := context.Background()
	sess, err := reg.GetOrCreate(ctx, "s1", true, "", false)
	require.NoError(t, err)
	defer reg.Close(ctx, "s1")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				drv.EmitNetwork(InterceptedRequest{Timestamp: time.Now(), Method: "GET", URL: "https://x.test", Phase: "request"})
				time.Sleep(10 * time.Millisecond)
			}
		}
	}()
	require.Eventually(t, func() bool { return len(sess.Network()) > 0 }, time.Second, 5*time.Millisecond)

	err = sess.WaitForNetworkIdle(ctx, 200*time.Millisecond, 100*time.Millisecond)
	assert.Error(t, err)
}
