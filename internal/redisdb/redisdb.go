/*
Copyright 2025 Ledgerkeep Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redisdb

import (
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis wraps a go-redis universal client.
type Redis struct {
	client redis.UniversalClient
}

// NewRedisClient parses the given redis URL (redis://host:port) and returns
// a connected client wrapper.
func NewRedisClient(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	return &Redis{client: client}, nil
}

func (r *Redis) Client() redis.UniversalClient {
	return r.client
}
