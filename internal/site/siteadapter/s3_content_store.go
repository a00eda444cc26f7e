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

package siteadapter

import (
	"bytes"
	"context"

	"emperror.dev/errors"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3ContentStore keeps deployed site assets in an S3 bucket, one prefix per
// site.
type S3ContentStore struct {
	s3Svc  s3iface.S3API
	bucket string
}

// NewS3ContentStore returns a new S3ContentStore.
func NewS3ContentStore(s3Svc s3iface.S3API, bucket string) *S3ContentStore {
	return &S3ContentStore{
		s3Svc:  s3Svc,
		bucket: bucket,
	}
}

// Deploy uploads a site document under the site's prefix.
func (s *S3ContentStore) Deploy(ctx context.Context, siteID string, key string, body []byte, contentType string) error {
	_, err := s.s3Svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(siteID + "/" + key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.WrapIfWithDetails(err, "deploying site content failed", "siteId", siteID, "key", key)
	}

	return nil
}

// Delete removes every object under the site's prefix.
func (s *S3ContentStore) Delete(ctx context.Context, siteID string) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(siteID + "/"),
	}

	for {
		output, err := s.s3Svc.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return errors.WrapIfWithDetails(err, "listing site content failed", "siteId", siteID)
		}

		if len(output.Contents) == 0 {
			return nil
		}

		objects := make([]*s3.ObjectIdentifier, 0, len(output.Contents))
		for _, object := range output.Contents {
			objects = append(objects, &s3.ObjectIdentifier{Key: object.Key})
		}

		_, err = s.s3Svc.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3.Delete{Objects: objects},
		})
		if err != nil {
			return errors.WrapIfWithDetails(err, "deleting site content failed", "siteId", siteID)
		}

		if !aws.BoolValue(output.IsTruncated) {
			return nil
		}

		input.ContinuationToken = output.NextContinuationToken
	}
}

// Exists reports whether the site has deployed content.
func (s *S3ContentStore) Exists(ctx context.Context, siteID string) (bool, error) {
	output, err := s.s3Svc.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(siteID + "/"),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return false, errors.WrapIfWithDetails(err, "checking site content failed", "siteId", siteID)
	}

	return len(output.Contents) > 0, nil
}
