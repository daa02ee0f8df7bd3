// Package s3 stores serialized n-gram maps in Amazon S3.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "models/")
//	err := model.SaveTo(ctx, store, "en-5gram.ngs")
//
// Reads use ranged GETs and writes stream through the multipart uploader, so
// large maps never need to be buffered whole.
package s3
