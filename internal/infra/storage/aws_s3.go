/*
 * @Description: AWS S3存储提供者实现（使用aws-sdk-go-v2）
 * @Author: 安知鱼
 * @Date: 2025-09-28 19:00:00
 * @LastEditTime: 2025-10-19 18:40:12
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AWSS3Provider 实现了 IBlobStore 接口，用于处理与AWS S3（及兼容服务）的所有交互。
type AWSS3Provider struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucketName string
	basePath   string
}

// NewAWSS3Provider 是 AWSS3Provider 的构造函数，客户端只在这里创建一次。
func NewAWSS3Provider(ctx context.Context, opts Options) (*AWSS3Provider, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("AWS S3配置缺少存储桶名称")
	}
	if opts.AccessKey == "" {
		return nil, fmt.Errorf("AWS S3配置缺少AccessKey")
	}
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("AWS S3配置缺少SecretKey")
	}

	region, customEndpoint := resolveS3Endpoint(opts.Region, opts.Server)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		log.Printf("[AWS S3] 创建配置失败: %v", err)
		return nil, fmt.Errorf("创建AWS S3配置失败: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if customEndpoint != "" {
			o.BaseEndpoint = aws.String(customEndpoint)
			o.UsePathStyle = true // 对于自定义endpoint通常需要path-style
		}
	})

	log.Printf("[AWS S3] 成功创建客户端 - 区域: %s, 存储桶: %s", region, opts.Bucket)
	return &AWSS3Provider{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucketName: opts.Bucket,
		basePath:   opts.BasePath,
	}, nil
}

// resolveS3Endpoint 从配置中解析区域和自定义 endpoint。
// Server 可能是 "us-west-2"、"https://s3.us-west-2.amazonaws.com" 或兼容服务的地址。
func resolveS3Endpoint(region, server string) (string, string) {
	var customEndpoint string
	if server != "" {
		if strings.HasPrefix(server, "http") {
			if parsedURL, err := url.Parse(server); err == nil {
				customEndpoint = server
				if region == "" && strings.Contains(parsedURL.Host, "amazonaws.com") {
					parts := strings.Split(parsedURL.Host, ".")
					if len(parts) >= 4 && strings.HasPrefix(parts[0], "s3") {
						region = parts[1] // s3.us-west-2.amazonaws.com
					}
				}
			}
		} else if region == "" {
			region = server
		}
	}
	if region == "" {
		region = "us-east-1"
	}
	return region, customEndpoint
}

// Type 返回驱动类型
func (p *AWSS3Provider) Type() string {
	return string(constant.StorageTypeS3)
}

func (p *AWSS3Provider) objectKey(key string) (string, error) {
	cleaned, err := CleanObjectKey(key)
	if err != nil {
		return "", err
	}
	return joinPrefix(p.basePath, cleaned), nil
}

// Put 上传对象到S3
func (p *AWSS3Provider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucketName),
		Key:         aws.String(objectKey),
		Body:        r,
		ContentType: aws.String(contentTypeOrDefault(contentType)),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		log.Printf("[AWS S3] 上传失败 - 对象键: %s, 错误: %v", objectKey, err)
		return fmt.Errorf("上传文件到AWS S3失败: %w", err)
	}
	return nil
}

// Get 获取S3对象的读取流
func (p *AWSS3Provider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return nil, fmt.Errorf("从AWS S3获取文件失败: %w", err)
	}
	return result.Body, nil
}

// Delete 删除S3对象，S3对不存在的对象本身返回成功
func (p *AWSS3Provider) Delete(ctx context.Context, key string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("删除AWS S3对象失败: %w", err)
	}
	return nil
}

// Presign 生成预签名下载URL
func (p *AWSS3Provider) Presign(ctx context.Context, key string, opts PresignOptions) (string, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return "", err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	}
	if disposition := ContentDisposition(opts); disposition != "" {
		input.ResponseContentDisposition = aws.String(disposition)
	}

	result, err := p.presigner.PresignGetObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = presignExpires(opts)
	})
	if err != nil {
		return "", fmt.Errorf("生成AWS S3预签名URL失败: %w", err)
	}
	return result.URL, nil
}

// isS3NotFound 检查是否是 NoSuchKey / NotFound 错误
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
