// Copyright © 2022 PageForge
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

package context

import (
	"context"
)

type contextKey string

const contextKeyCorrelationId contextKey = "correlation-id"

// WithCorrelationID returns a new context annotated with a correlation ID.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, contextKeyCorrelationId, cid)
}

// CorrelationID returns the correlation ID from a context (if any).
func CorrelationID(ctx context.Context) string {
	cid, ok := ctx.Value(contextKeyCorrelationId).(string)
	if !ok {
		return ""
	}

	return cid
}

// Extractor extracts log fields from a context.
type Extractor struct{}

// Extract extracts log fields from a context.
func (Extractor) Extract(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{})

	if cid := CorrelationID(ctx); cid != "" {
		fields["correlation-id"] = cid
	}

	return fields
}
