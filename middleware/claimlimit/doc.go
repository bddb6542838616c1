// Package claimlimit fornece adapters HTTP (net/http) para o limite de claims
// por cliente e para a proteção da API (throttle + concorrência).
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: ClaimLimiter, ClaimService e RequestGuard, sem net/http
//   - infra: storages (memória, Redis, SQLite), token bucket, stats
//   - claimlimit (este pacote): middlewares HTTP + extração da chave do cliente
//     + tradução da decisão para status/headers
//
// Fluxo de um claim:
//
//  1. Extrai a chave do cliente (header/XFF/IP)
//  2. Abre o storage do cliente (prefixo da chave no storage compartilhado)
//  3. Se já houve claim dentro da janela, responde 429 com Retry-After
//  4. Se permitido, chama o próximo handler e grava o claim conforme a RecordPolicy
//
// A janela é aplicada por storage de cliente; não é um limite distribuído
// nem autenticado: trocar de IP/header zera o histórico.
package claimlimit
