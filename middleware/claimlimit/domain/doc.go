// Package domain define contratos e tipos de domínio para o limite de claims.
//
// Este pacote não depende de net/http nem de implementações concretas
// (Redis, SQLite, memória). A intenção é permitir testes de unidade puros e
// desacoplar a regra da janela de claims dos detalhes de infraestrutura.
package domain
