// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "github.com/gogpu/kernel"

// HeadlessName is the registry name of the headless engine.
const HeadlessName = "gpu-headless"

// HeadlessPriority places the headless engine below every native engine.
const HeadlessPriority = 10

func init() {
	kernel.RegisterEngine(HeadlessName, HeadlessPriority, func() (kernel.Engine, error) {
		e, err := NewHeadless()
		if err != nil {
			return nil, err
		}
		return e, nil
	}, nil)
}
