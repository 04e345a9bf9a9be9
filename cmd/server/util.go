// File: cmd/server/util.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
