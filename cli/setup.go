package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/larrabee/s3file/pipeline"
	"github.com/larrabee/s3file/storage/auth"
	"github.com/larrabee/s3file/storage/s3"
)

func setupSyncer(cli *argsParsed) (*pipeline.Syncer, *pipeline.Metrics, error) {
	clientCfg := s3.DefaultConfig()
	clientCfg.RetryCnt = cli.S3Retry
	clientCfg.RetryDelay = cli.S3RetryDelay
	clientCfg.Timeout = cli.S3Timeout
	clientCfg.UserAgent = fmt.Sprintf("s3file/%s", version)
	if live != nil {
		clientCfg.Progress = printProgress
	}
	client := s3.NewClient(clientCfg)

	if cli.RateLimitBandwidth > 0 {
		if err := client.WithRateLimit(cli.RateLimitBandwidth); err != nil {
			return nil, nil, fmt.Errorf("bandwidth limit error: %w", err)
		}
		log.Debugf("Download bandwidth limited to %s/sec", humanize.Bytes(uint64(cli.RateLimitBandwidth)))
	}

	provider, err := auth.NewProvider(auth.Config{Endpoint: cli.IMDSEndpoint, Timeout: cli.IMDSTimeout})
	if err != nil {
		return nil, nil, err
	}

	metrics := pipeline.NewMetrics()
	syncer := pipeline.NewSyncer(client, provider, pipeline.Config{
		CatalogPath: cli.CatalogPath,
		FilePerm:    cli.FSFilePerm,
		Xattr:       cli.FSXattr,
		Metrics:     metrics,
	})
	return syncer, metrics, nil
}

func buildRequest(cli *argsParsed) pipeline.Request {
	return pipeline.Request{
		Path:              cli.Target,
		Bucket:            cli.Source.Bucket,
		RemotePath:        cli.Source.Path,
		URL:               cli.Endpoint,
		Region:            cli.Region,
		AccessKeyID:       cli.Key,
		SecretAccessKey:   cli.Secret,
		SessionToken:      cli.Token,
		PublicBucket:      cli.Public,
		DecryptionKey:     cli.DecryptionKey,
		DecryptedChecksum: cli.DecryptedChecksum,
		VerifyMD5:         cli.VerifyMD5,
		UseCatalog:        cli.UseCatalog,
		Owner:             cli.Owner,
		Group:             cli.Group,
		Mode:              cli.Mode,
	}
}
