// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import "strconv"

// formatInt and formatFloat render numbers the way CONCAT and tostring
// coercion need (spec §4.2.3, "strings and numeric primitives
// concatenate by their decimal textual form").
func formatInt(i int64) string { return strconv.FormatInt(i, 10) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
