// Package sonar provides a text embedding and semantic search engine that
// encodes text into normalized vectors with a local ONNX encoder and ranks
// documents by cosine similarity.
//
// Quick start:
//
//	s, err := sonar.New(sonar.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	vec, _ := s.Embed("database connection pooling in Go")
//	fmt.Println(len(vec)) // model hidden size, e.g. 384
//
// The Sonar instance is safe for concurrent use. Create once, reuse across
// requests. See the README for full documentation.
package sonar
