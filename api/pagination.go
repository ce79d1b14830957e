// Copyright 2026 Blink Labs Software
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

package api

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultPaginationLimit = 100
	MaxPaginationLimit     = 100
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams contains parsed pagination query values.
type PaginationParams struct {
	Offset uint64
	Limit  int
}

// ParsePagination parses the offset and limit query parameters and applies
// defaults and bounds clamping.
func ParsePagination(r *http.Request) (PaginationParams, error) {
	params := PaginationParams{
		Limit: DefaultPaginationLimit,
	}
	query := r.URL.Query()
	if offsetParam := query.Get("offset"); offsetParam != "" {
		offset, err := strconv.ParseUint(offsetParam, 10, 64)
		if err != nil {
			return PaginationParams{},
				ErrInvalidPaginationParameters
		}
		params.Offset = offset
	}
	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return PaginationParams{},
				ErrInvalidPaginationParameters
		}
		params.Limit = limit
	}
	if params.Limit < 1 {
		params.Limit = 1
	}
	if params.Limit > MaxPaginationLimit {
		params.Limit = MaxPaginationLimit
	}
	return params, nil
}

// SetPaginationHeaders sets the total item count header.
func SetPaginationHeaders(w http.ResponseWriter, totalItems uint64) {
	w.Header().Set(
		"X-Pagination-Count-Total",
		strconv.FormatUint(totalItems, 10),
	)
}
