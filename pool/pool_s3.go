/*
Copyright (C) 2026  Andrew Cowie

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func init() {
	Registry["s3"] = func(raw json.RawMessage) (Pool, error) {
		var cfg struct {
			AccessKeyID     string `json:"access_key_id"`
			SecretAccessKey string `json:"secret_access_key"`
			Region          string `json:"region"`
			Endpoint        string `json:"endpoint"`
			Bucket          string `json:"bucket"`
			Prefix          string `json:"prefix"`
			ForcePathStyle  bool   `json:"force_path_style"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
		return NewS3Pool(context.Background(), S3Config{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			ForcePathStyle:  cfg.ForcePathStyle,
		})
	}
}

// S3Config names the S3-compatible endpoint and credentials a pool
// connects to. Fields mirror the teacher's S3Factory.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool
}

// S3Pool is an S3-backed Pool. S3 has no append primitive, so Append is a
// buffered read-modify-write of the whole object — the same tradeoff the
// teacher documents for its S3-backed log segments. Locking has no native
// S3 analogue either, so ExclusiveLock is an in-process mutex per lock name
// and gives no exclusion across processes.
type S3Pool struct {
	cfg    S3Config
	client *s3.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewS3Pool builds an S3 client from the given credentials/endpoint and
// returns a ready Pool.
func NewS3Pool(ctx context.Context, cfg S3Config) (*S3Pool, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("pool: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Pool{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func (p *S3Pool) key(name string) string {
	if p.cfg.Prefix == "" {
		return name
	}
	return p.cfg.Prefix + "/" + name
}

func (p *S3Pool) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(key)),
	})
	if err != nil {
		return nil, ErrNotFound
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (p *S3Pool) putObject(ctx context.Context, key string, data []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(key)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Append implements Pool via read-modify-write.
func (p *S3Pool) Append(ctx context.Context, key string, data []byte) AsyncWrite {
	existing, err := p.getObject(ctx, key)
	if err != nil && err != ErrNotFound {
		return immediateWrite{err: err}
	}
	return immediateWrite{err: p.putObject(ctx, key, append(existing, data...))}
}

// WriteFull implements Pool.
func (p *S3Pool) WriteFull(ctx context.Context, key string, data []byte) AsyncWrite {
	return immediateWrite{err: p.putObject(ctx, key, data)}
}

// Stat implements Pool.
func (p *S3Pool) Stat(ctx context.Context, key string) AsyncStat {
	resp, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(p.key(key)),
	})
	if err != nil {
		return immediateStat{err: ErrNotFound}
	}
	size := uint64(0)
	if resp.ContentLength != nil {
		size = uint64(*resp.ContentLength)
	}
	return immediateStat{stat: Stat{Size: size}}
}

// ReadFull implements Pool.
func (p *S3Pool) ReadFull(ctx context.Context, key string) ([]byte, error) {
	return p.getObject(ctx, key)
}

// ExclusiveLock implements Pool with an in-process mutex keyed by lock
// name: S3 itself has no lock primitive, so cross-process exclusion for
// this backend is left to the deployment (e.g. a single writer per
// origin), matching the teacher's "Remove not implemented" candor about
// RADOS-shaped gaps in non-native backends.
func (p *S3Pool) ExclusiveLock(ctx context.Context, key string, fn func() error) error {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	p.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
