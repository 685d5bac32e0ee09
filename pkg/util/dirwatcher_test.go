/*
   SDCtl - flight computer SD card tool
   Copyright (c) 2022, CU InSpace

   This file is part of SDCtl.

   SDCtl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   SDCtl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with SDCtl. If not, see <http://www.gnu.org/licenses/>.
*/

package util

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func TestDirWatcher(t *testing.T) {

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "flight_0"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "flight_1.partial"), 0755))

	dw, err := NewDirWatcher(root, func(path string) bool {
		return strings.HasSuffix(path, ".partial")
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	flushed := 0

	require.NoError(t, dw.Start(50*time.Millisecond,
		func(evt fsnotify.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, filepath.Base(evt.Name))
			return nil
		},
		func() error {
			mu.Lock()
			defer mu.Unlock()
			flushed++
			return nil
		}))
	defer dw.Stop()

	require.NoError(t, os.WriteFile(
		filepath.Join(root, "flight_0", "log_messages"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "flight_1.partial", "log_messages"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "flight_2.partial"), 0755))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushed > 0 && len(seen) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seen {
		require.NotContains(t, s, ".partial")
	}
	require.Contains(t, seen, "log_messages")
}

func TestDirWatcherStopUnstarted(t *testing.T) {
	dw, err := NewDirWatcher(t.TempDir(), nil)
	require.NoError(t, err)
	dw.Stop()
	require.Error(t, dw.Start(time.Second, nil, nil))
}
