// Package minio stores serialized n-gram maps in MinIO or any other
// S3-compatible object store (Ceph, Garage, SeaweedFS).
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "lm", "models/")
//	model, err := ngramstore.LoadFrom[ngramstore.ProbBackoff](ctx, store, "en-5gram.ngs")
package minio
