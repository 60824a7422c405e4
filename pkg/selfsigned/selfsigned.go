// Package selfsigned issues throwaway ECDSA certificates for local servers and tests.
package selfsigned

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"time"
)

// New
// 生成一个自签名证书，hosts 中的 IP 与域名写入 SAN。
//
// pool 只包含该证书，客户端用它作为 RootCAs。
func New(hosts ...string) (cert tls.Certificate, pool *x509.CertPool, err error) {
	key, keyErr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if keyErr != nil {
		err = keyErr
		return
	}
	serial, serialErr := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if serialErr != nil {
		err = serialErr
		return
	}
	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"sslio"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}
	der, createErr := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if createErr != nil {
		err = createErr
		return
	}
	leaf, parseErr := x509.ParseCertificate(der)
	if parseErr != nil {
		err = parseErr
		return
	}
	cert = tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}
	pool = x509.NewCertPool()
	pool.AddCert(leaf)
	return
}

// Configs returns a matching server and client configuration for host.
func Configs(host string) (server *tls.Config, client *tls.Config, err error) {
	cert, pool, err := New(host)
	if err != nil {
		return
	}
	server = &tls.Config{
		Certificates: []tls.Certificate{cert},
	}
	client = &tls.Config{
		RootCAs:    pool,
		ServerName: host,
	}
	return
}
