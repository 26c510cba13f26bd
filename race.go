// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package workq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent scenarios that hand items between
// threads through the baton lock's atomics, which the detector cannot
// track as synchronization.
const RaceEnabled = true
